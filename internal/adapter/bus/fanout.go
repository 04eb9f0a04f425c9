package bus

import (
	"errors"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"
)

// FanOutBus registers services on every wrapped bus and mirrors each write to all of them.
type FanOutBus struct {
	buses []port.Bus
}

func NewFanOutBus(buses ...port.Bus) *FanOutBus {
	return &FanOutBus{buses: buses}
}

func (b *FanOutBus) Service(svc domain.ServiceInfo) (port.Sink, error) {
	sinks := make(fanOutSink, 0, len(b.buses))
	for _, bus := range b.buses {
		sink, err := bus.Service(svc)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func (b *FanOutBus) Close() error {
	var errs []error
	for _, bus := range b.buses {
		errs = append(errs, bus.Close())
	}
	return errors.Join(errs...)
}

type fanOutSink []port.Sink

func (s fanOutSink) SetPath(path string, value any) {
	for _, sink := range s {
		sink.SetPath(path, value)
	}
}

// ensure interface compliance
var _ port.Bus = (*FanOutBus)(nil)
