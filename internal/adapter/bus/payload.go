package bus

import (
	"encoding/json"

	"github.com/berfenger/sungrow2venus/internal/config"
	"github.com/berfenger/sungrow2venus/internal/core/domain"
)

type valuePayload struct {
	Value any `json:"value"`
}

// EncodeValue renders a path value the way dbus-mqtt does: {"value": v}.
func EncodeValue(value any) ([]byte, error) {
	return json.Marshal(valuePayload{Value: value})
}

func serviceType(svc domain.ServiceInfo) (string, error) {
	return config.CheckServiceName(svc.ServiceName)
}
