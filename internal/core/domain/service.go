package domain

const (
	PRODUCT_NAME_INVERTER = "Sungrow Inverter"
	PRODUCT_NAME_METER    = "Sungrow Meter"
	METER_DEVICE_TYPE     = "Internal meter"
)

// ServiceInfo identifies a device service on the bus.
type ServiceInfo struct {
	Kind           DeviceKind
	ServiceName    string
	DeviceInstance uint
	ProductName    string
	ProcessName    string
	ProcessVersion string
	Connection     string
	// AC position of the inverter: 0=AC input 1, 1=AC output, 2=AC input 2
	Position uint
}

// StaticPaths returns the management and identification paths set once at startup.
func (svc ServiceInfo) StaticPaths(info DeviceInfo) []PathValue {
	values := []PathValue{
		{Path: "/Mgmt/ProcessName", Value: svc.ProcessName},
		{Path: "/Mgmt/ProcessVersion", Value: svc.ProcessVersion},
		{Path: "/Mgmt/Connection", Value: svc.Connection},
		{Path: "/DeviceInstance", Value: svc.DeviceInstance},
		{Path: "/ProductId", Value: info.ProductId},
		{Path: "/ProductName", Value: svc.ProductName},
		{Path: "/FirmwareVersion", Value: 0},
		{Path: "/HardwareVersion", Value: 0},
	}
	switch svc.Kind {
	case DEVICE_INVERTER:
		values = append(values,
			PathValue{Path: "/Ac/MaxPower", Value: info.NominalPowerWatt},
			PathValue{Path: "/Position", Value: svc.Position},
			PathValue{Path: "/StatusCode", Value: 0},
			PathValue{Path: "/FroniusDeviceType", Value: 0},
		)
	case DEVICE_METER:
		values = append(values,
			PathValue{Path: "/DeviceType", Value: METER_DEVICE_TYPE},
			PathValue{Path: "/StatusCode", Value: 0},
		)
	}
	return values
}
