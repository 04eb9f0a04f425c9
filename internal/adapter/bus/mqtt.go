package bus

import (
	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// MQTTBus forwards path updates to the MQTT actor, which owns the broker connection
// and maps them to N/<portal_id>/<service_type>/<instance><path> topics.
type MQTTBus struct {
	sender actor.SenderContext
	pid    *actor.PID
	logger *zap.Logger
}

func NewMQTTBus(sender actor.SenderContext, pid *actor.PID, logger *zap.Logger) *MQTTBus {
	return &MQTTBus{
		sender: sender,
		pid:    pid,
		logger: logger.With(zap.String("bus", "mqtt")),
	}
}

func (b *MQTTBus) Service(svc domain.ServiceInfo) (port.Sink, error) {
	serviceType, err := serviceType(svc)
	if err != nil {
		return nil, err
	}
	return &mqttSink{
		bus:            b,
		serviceType:    serviceType,
		deviceInstance: svc.DeviceInstance,
	}, nil
}

// Close is a no-op, the MQTT actor disconnects when stopped.
func (b *MQTTBus) Close() error {
	return nil
}

type mqttSink struct {
	bus            *MQTTBus
	serviceType    string
	deviceInstance uint
}

func (s *mqttSink) SetPath(path string, value any) {
	payload, err := EncodeValue(value)
	if err != nil {
		s.bus.logger.Error("mqtt encode", zap.String("path", path), zap.Error(err))
		return
	}
	s.bus.sender.Send(s.bus.pid, domain.PublishPathRequest{
		ServiceType:    s.serviceType,
		DeviceInstance: s.deviceInstance,
		Path:           path,
		Payload:        payload,
	})
}

// ensure interface compliance
var _ port.Bus = (*MQTTBus)(nil)
