package service

import (
	"github.com/berfenger/sungrow2venus/internal/config"
	"github.com/berfenger/sungrow2venus/internal/core/domain"
)

const PROCESS_NAME = "sungrow2venus"

// ServicesFromConfig lists the bus services of every enabled device.
func ServicesFromConfig(cfg config.Config, processVersion string, connection string) []domain.ServiceInfo {
	var services []domain.ServiceInfo
	add := func(kind domain.DeviceKind, dc config.DeviceConfig, defaultName string) {
		if !dc.Enable {
			return
		}
		productName := dc.ProductName
		if productName == "" {
			productName = defaultName
		}
		services = append(services, domain.ServiceInfo{
			Kind:           kind,
			ServiceName:    dc.ServiceName,
			DeviceInstance: dc.DeviceInstance,
			ProductName:    productName,
			ProcessName:    PROCESS_NAME,
			ProcessVersion: processVersion,
			Connection:     connection,
			Position:       dc.Position,
		})
	}
	add(domain.DEVICE_INVERTER, cfg.Inverter, domain.PRODUCT_NAME_INVERTER)
	add(domain.DEVICE_METER, cfg.Meter, domain.PRODUCT_NAME_METER)
	return services
}
