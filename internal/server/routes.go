package server

import (
	"errors"
	"net/http"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type exportLimitBody struct {
	Percent *float64 `json:"percent"`
}

type serviceSnapshot struct {
	Service        string            `json:"service"`
	DeviceInstance uint              `json:"device_instance"`
	Paths          map[string]any    `json:"paths"`
	Units          map[string]string `json:"units"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/devices", s.DevicesHandler)
	api.GET("/devices/:device", s.DeviceHandler)
	api.GET("/services", s.ServicesHandler)
	api.GET("/inverter/export_limit", s.GetExportLimitHandler)
	api.PUT("/inverter/export_limit", s.SetExportLimitHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, REQUEST_TIMEOUT).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DevicesHandler(c echo.Context) error {
	states := []domain.DeviceState{}
	for _, kind := range []domain.DeviceKind{domain.DEVICE_INVERTER, domain.DEVICE_METER} {
		state, err := s.deviceState(kind)
		if errors.Is(err, domain.ErrUnknownDevice) {
			// device disabled
			continue
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		states = append(states, *state)
	}
	return c.JSON(http.StatusOK, states)
}

func (s *Server) DeviceHandler(c echo.Context) error {
	kind, err := domain.ParseDeviceKind(c.Param("device"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	state, err := s.deviceState(kind)
	if errors.Is(err, domain.ErrUnknownDevice) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// ServicesHandler dumps the last value of every published path.
func (s *Server) ServicesHandler(c echo.Context) error {
	services := []serviceSnapshot{}
	if s.memory != nil {
		for _, name := range s.memory.ServiceNames() {
			sink, ok := s.memory.Sink(name)
			if !ok {
				continue
			}
			paths := sink.Snapshot()
			services = append(services, serviceSnapshot{
				Service:        name,
				DeviceInstance: sink.Info().DeviceInstance,
				Paths:          paths,
				Units:          pathUnits(sink.Info().Kind, paths),
			})
		}
	}
	return c.JSON(http.StatusOK, services)
}

func (s *Server) GetExportLimitHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetExportLimitRequest{}, REQUEST_TIMEOUT).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.GetExportLimitResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if resp.HasResponseError() {
		return echo.NewHTTPError(http.StatusBadGateway, resp.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, resp.Limit)
}

func (s *Server) SetExportLimitHandler(c echo.Context) error {
	var body exportLimitBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	if body.Percent == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "percent is required")
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.SetExportLimitRequest{Percent: *body.Percent}, REQUEST_TIMEOUT).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.SetExportLimitResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if errors.Is(resp.GetResponseError(), sungrow_modbus.ErrExportLimitRange) {
		return echo.NewHTTPError(http.StatusBadRequest, resp.GetResponseError().Error())
	}
	if resp.HasResponseError() {
		return echo.NewHTTPError(http.StatusBadGateway, resp.GetResponseError().Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deviceState(kind domain.DeviceKind) (*domain.DeviceState, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDeviceStateRequest{Device: kind}, REQUEST_TIMEOUT).Result()
	if err != nil {
		return nil, err
	}
	resp, ok := res.(domain.GetDeviceStateResponse)
	if !ok {
		return nil, errors.New("unexpected response")
	}
	if resp.HasResponseError() {
		return nil, resp.GetResponseError()
	}
	return resp.State, nil
}

// pathUnits maps every measured path to its unit. Static paths have none.
func pathUnits(kind domain.DeviceKind, paths map[string]any) map[string]string {
	table := domain.NewQuantityTable(kind)
	units := map[string]string{}
	for path := range paths {
		if q, ok := table.Lookup(path); ok {
			units[path] = q.Unit
		}
	}
	return units
}
