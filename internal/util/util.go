package util

import (
	"github.com/berfenger/sungrow2venus/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		ModbusTcp: config.ModbusTCPConfig{
			Host:          "-.-.-.-",
			Port:          502,
			UnitId:        1,
			Driver:        "simonvetter",
			TimeoutMillis: 1000,
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 100,
			PollTimeoutMillis:  2000,
		},
		Inverter: config.DeviceConfig{
			Enable:         true,
			ServiceName:    "com.victronenergy.pvinverter.sungrow01",
			DeviceInstance: 20,
			Position:       1,
		},
		Meter: config.DeviceConfig{
			Enable:         true,
			ServiceName:    "com.victronenergy.grid.sungrow_meter",
			DeviceInstance: 30,
		},
		Bus: config.BusConfig{
			Targets: []string{config.BUS_TARGET_MQTT},
		},
		MQTT: config.MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			PortalId: "venus",
		},
		Port: 8080,
	}
}
