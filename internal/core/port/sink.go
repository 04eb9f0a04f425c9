package port

import (
	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"
)

// Sink receives path updates of a single device service.
// Implementations must not block the caller for long.
type Sink interface {
	SetPath(path string, value any)
}

// Bus registers device services and hands out their sinks.
type Bus interface {
	Service(svc domain.ServiceInfo) (Sink, error)
	Close() error
}

// DevicePoller reads one device through the register transport.
type DevicePoller interface {
	Kind() domain.DeviceKind
	Info() (*domain.DeviceInfo, error)
	Poll() (*domain.PollOutcome, error)
}

type ExportLimiter interface {
	GetExportLimit() (*sungrow_modbus.ExportLimit, error)
	SetExportLimit(percent float64) error
}
