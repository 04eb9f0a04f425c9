package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/sungrow2venus/internal/adapter/bus"
	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/util"
	"github.com/berfenger/sungrow2venus/internal/util/actorutil"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeMaster answers like the master actor, with a fixed limit of 100%.
func fakeMaster(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: true})
	case domain.GetDeviceStateRequest:
		if msg.Device == domain.DEVICE_METER {
			ctx.Respond(domain.GetDeviceStateResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: domain.ErrUnknownDevice}})
			return
		}
		ctx.Respond(domain.GetDeviceStateResponse{State: &domain.DeviceState{Kind: msg.Device, Connected: true, Cycles: 3}})
	case domain.GetExportLimitRequest:
		ctx.Respond(domain.GetExportLimitResponse{Limit: &sungrow_modbus.ExportLimit{Percent: 100, Raw: 1000}})
	case domain.SetExportLimitRequest:
		if msg.Percent > 100 {
			ctx.Respond(domain.SetExportLimitResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: sungrow_modbus.ErrExportLimitRange}})
			return
		}
		ctx.Respond(domain.SetExportLimitResponse{})
	}
}

func newTestServer(t *testing.T) (http.Handler, func()) {
	as := actorutil.NewActorSystemWithZapLogger(zap.NewNop())
	pid := as.Root.Spawn(actor.PropsFromFunc(fakeMaster))

	memory := bus.NewMemoryBus()
	sink, err := memory.Service(domain.ServiceInfo{
		Kind:           domain.DEVICE_INVERTER,
		ServiceName:    "com.victronenergy.pvinverter.sungrow01",
		DeviceInstance: 20,
	})
	require.NoError(t, err)
	sink.SetPath("/Ac/Power", 7210.0)
	sink.SetPath("/ProductName", "Sungrow Inverter")

	srv := NewServer(util.LoadTestConfig(), as.Root, pid, memory)
	return srv.Handler, func() {
		as.Root.Stop(pid)
		time.Sleep(10 * time.Millisecond)
		as.Shutdown()
	}
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckRoute(t *testing.T) {
	h, stop := newTestServer(t)
	defer stop()

	rec := serve(h, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())
}

func TestDeviceRoutes(t *testing.T) {
	h, stop := newTestServer(t)
	defer stop()

	rec := serve(h, http.MethodGet, "/api/devices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"device":"inverter"`)
	assert.NotContains(t, rec.Body.String(), `"device":"meter"`, "disabled device is skipped")

	rec = serve(h, http.MethodGet, "/api/devices/inverter", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected":true`)

	rec = serve(h, http.MethodGet, "/api/devices/meter", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodGet, "/api/devices/battery", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodGet, "/api/services", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"service":"com.victronenergy.pvinverter.sungrow01","device_instance":20,
		"paths":{"/Ac/Power":7210,"/ProductName":"Sungrow Inverter"},"units":{"/Ac/Power":"W"}}]`, rec.Body.String())
}

func TestExportLimitRoutes(t *testing.T) {
	h, stop := newTestServer(t)
	defer stop()

	rec := serve(h, http.MethodGet, "/api/inverter/export_limit", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"percent":100,"raw":1000}`, rec.Body.String())

	rec = serve(h, http.MethodPut, "/api/inverter/export_limit", `{"percent": 55}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodPut, "/api/inverter/export_limit", `{"percent": 150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPut, "/api/inverter/export_limit", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
