package bus

import (
	"fmt"
	"strings"

	"github.com/berfenger/sungrow2venus/internal/config"
	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSBus publishes path updates as N.<portal_id>.<service_type>.<instance>.<path> subjects.
type NATSBus struct {
	conn     natsPublisher
	close    func()
	portalId string
	logger   *zap.Logger
}

func ConnectNATSBus(cfg *config.Config, logger *zap.Logger) (*NATSBus, error) {
	url := cfg.NATS.URL
	if url == "" {
		url = nats.DefaultURL
	}
	logger = logger.With(zap.String("bus", "nats"))
	nc, err := nats.Connect(url,
		nats.Name(fmt.Sprintf("sungrow2venus_%s", uuid.NewString()[:8])),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	bus := NewNATSBus(nc, cfg.MQTT.PortalId, logger)
	bus.close = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return bus, nil
}

func NewNATSBus(conn natsPublisher, portalId string, logger *zap.Logger) *NATSBus {
	return &NATSBus{
		conn:     conn,
		portalId: portalId,
		logger:   logger,
	}
}

func (b *NATSBus) Service(svc domain.ServiceInfo) (port.Sink, error) {
	serviceType, err := serviceType(svc)
	if err != nil {
		return nil, err
	}
	return &natsSink{
		bus:    b,
		prefix: fmt.Sprintf("N.%s.%s.%d", b.portalId, serviceType, svc.DeviceInstance),
	}, nil
}

func (b *NATSBus) Close() error {
	if b.close != nil {
		b.close()
	}
	return nil
}

type natsSink struct {
	bus    *NATSBus
	prefix string
}

func (s *natsSink) SetPath(path string, value any) {
	payload, err := EncodeValue(value)
	if err != nil {
		s.bus.logger.Error("nats encode", zap.String("path", path), zap.Error(err))
		return
	}
	subject := natsSubject(s.prefix, path)
	if err := s.bus.conn.Publish(subject, payload); err != nil {
		s.bus.logger.Warn("nats publish", zap.String("subject", subject), zap.Error(err))
	}
}

func natsSubject(prefix string, path string) string {
	return prefix + "." + strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

// ensure interface compliance
var _ port.Bus = (*NATSBus)(nil)
