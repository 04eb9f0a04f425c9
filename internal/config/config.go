package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	BUS_TARGET_MQTT = "mqtt"
	BUS_TARGET_NATS = "nats"
)

type Config struct {
	LogLevel        zapcore.Level
	ModbusTcp       ModbusTCPConfig `mapstructure:"modbus_tcp"`
	MonitorConfig   MonitorConfig   `mapstructure:"monitor"`
	Inverter        DeviceConfig    `mapstructure:"inverter"`
	Meter           DeviceConfig    `mapstructure:"meter"`
	RegisterMapFile string          `mapstructure:"register_map_file"`
	Bus             BusConfig       `mapstructure:"bus"`
	MQTT            MQTTConfig      `mapstructure:"mqtt"`
	NATS            NATSConfig      `mapstructure:"nats"`
	Port            uint            `mapstructure:"port"`
	HttpLog         bool            `mapstructure:"http_log"`
}

type ModbusTCPConfig struct {
	Host          string
	Port          uint
	UnitId        uint   `mapstructure:"unit_id"`
	Driver        string `mapstructure:"driver"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	// upper bound of a whole poll, transport timeouts included
	PollTimeoutMillis uint32 `mapstructure:"poll_timeout_millis"`
}

type DeviceConfig struct {
	Enable         bool
	ServiceName    string `mapstructure:"service_name"`
	DeviceInstance uint   `mapstructure:"device_instance"`
	ProductName    string `mapstructure:"product_name"`
	Position       uint   `mapstructure:"position"`
}

type BusConfig struct {
	Targets []string `mapstructure:"targets"`
}

func (c BusConfig) Enabled(target string) bool {
	for _, t := range c.Targets {
		if strings.EqualFold(strings.TrimSpace(t), target) {
			return true
		}
	}
	return false
}

type MQTTConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	PortalId string `mapstructure:"portal_id"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

var (
	portalIdRegexp    = regexp.MustCompile("^[a-z0-9_]+$")
	serviceNameRegexp = regexp.MustCompile(`^com\.victronenergy\.([a-z]+)\.[a-zA-Z0-9_]+$`)
)

func CheckPortalId(portalId string) (string, error) {
	// check and fix portal id
	lowerPortalId := strings.ToLower(portalId)
	if !portalIdRegexp.MatchString(lowerPortalId) {
		return "", errors.New("invalid portal id. can only contain letters, numbers and underscores")
	}
	return lowerPortalId, nil
}

// CheckServiceName validates a bus service name and returns its service type,
// e.g. "pvinverter" for "com.victronenergy.pvinverter.sungrow01".
func CheckServiceName(serviceName string) (string, error) {
	matches := serviceNameRegexp.FindStringSubmatch(serviceName)
	if len(matches) != 2 {
		return "", fmt.Errorf("invalid service name %q. expected com.victronenergy.<type>.<name>", serviceName)
	}
	return matches[1], nil
}
