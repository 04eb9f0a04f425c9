package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/sungrow2venus/internal/adapter/actor"
	"github.com/berfenger/sungrow2venus/internal/adapter/bus"
	"github.com/berfenger/sungrow2venus/internal/config"
	"github.com/berfenger/sungrow2venus/internal/core/actor"
	"github.com/berfenger/sungrow2venus/internal/core/port"
	"github.com/berfenger/sungrow2venus/internal/core/service"
	"github.com/berfenger/sungrow2venus/internal/server"
	"github.com/berfenger/sungrow2venus/internal/util/actorutil"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// register map, defaults unless overridden by file
	registers, err := config.LoadRegisterMap(cfg.RegisterMapFile)
	if err != nil {
		logger.Fatal("invalid register map", zap.Error(err))
	}

	transport, err := sungrow_modbus.CreateRegisterTransport(cfg.ModbusTcp.Driver, cfg.ModbusTcp.Host, cfg.ModbusTcp.Port,
		uint8(cfg.ModbusTcp.UnitId), time.Duration(cfg.ModbusTcp.TimeoutMillis)*time.Millisecond, logger, nil)
	if err != nil {
		logger.Fatal("could not create modbus transport", zap.Error(err))
	}

	// buses: the memory bus backs the HTTP API, MQTT is attached by the master actor.
	// the master closes them all when stopped
	memory := bus.NewMemoryBus()
	buses := []port.Bus{memory}
	if cfg.Bus.Enabled(config.BUS_TARGET_NATS) {
		natsBus, err := bus.ConnectNATSBus(cfg, logger)
		if err != nil {
			logger.Fatal("could not connect to nats", zap.Error(err))
		}
		buses = append(buses, natsBus)
	}

	services := service.ServicesFromConfig(*cfg, versioninfo.Short(), transport.String())
	if len(services) == 0 {
		logger.Fatal("no device enabled")
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, services, buses,
			modbusActorProvider(cfg, transport, registers, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, memory)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SUNGROW2VENUS_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SUNGROW2VENUS_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("sungrow2venus")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix portal id
	portalId, err := config.CheckPortalId(cfg.MQTT.PortalId)
	if err != nil {
		return nil, err
	}
	cfg.MQTT.PortalId = portalId

	// check service names
	for _, dc := range []config.DeviceConfig{cfg.Inverter, cfg.Meter} {
		if !dc.Enable {
			continue
		}
		if _, err := config.CheckServiceName(dc.ServiceName); err != nil {
			return nil, err
		}
	}
	if cfg.Inverter.Enable && cfg.Meter.Enable && cfg.Inverter.DeviceInstance == cfg.Meter.DeviceInstance {
		return nil, errors.New("inverter.device_instance and meter.device_instance must differ")
	}
	if cfg.Inverter.Position > 2 {
		return nil, errors.New("config param inverter.position should be 0, 1 or 2")
	}

	// check bounds
	if cfg.MonitorConfig.PollIntervalMillis < 100 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 100")
	}
	if cfg.MonitorConfig.PollTimeoutMillis < cfg.ModbusTcp.TimeoutMillis {
		return nil, errors.New("config param monitor.poll_timeout_millis should be >= modbus_tcp.timeout_millis")
	}
	if cfg.Bus.Enabled(config.BUS_TARGET_NATS) && cfg.NATS.URL == "" {
		return nil, errors.New("config param nats.url is required when the nats bus is enabled")
	}

	return &cfg, nil
}

func modbusActorProvider(cfg *config.Config, transport sungrow_modbus.RegisterTransport, registers *sungrow_modbus.RegisterMap,
	logger *zap.Logger) actor.ModbusActorProvider {

	inverter := sungrow_modbus.CreateInverterModbusReader(transport, registers.Inverter)
	meter := sungrow_modbus.CreateMeterModbusReader(transport, registers.Meter)

	var pollers []port.DevicePoller
	if cfg.Inverter.Enable {
		pollers = append(pollers, service.InverterPoller{Reader: inverter})
	}
	if cfg.Meter.Enable {
		pollers = append(pollers, service.MeterPoller{Reader: meter})
	}
	timeout := time.Duration(cfg.MonitorConfig.PollTimeoutMillis) * time.Millisecond

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(transport, pollers, inverter, timeout, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.Bus.Enabled(config.BUS_TARGET_MQTT) {
		return nil
	}
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("port", 8080)
	viper.SetDefault("modbus_tcp.port", 502)
	viper.SetDefault("modbus_tcp.unit_id", 1)
	viper.SetDefault("modbus_tcp.driver", sungrow_modbus.DRIVER_SIMONVETTER)
	viper.SetDefault("modbus_tcp.timeout_millis", 1000)
	viper.SetDefault("monitor.poll_interval_millis", 1000)
	viper.SetDefault("monitor.poll_timeout_millis", 2000)
	viper.SetDefault("inverter.enable", true)
	viper.SetDefault("inverter.service_name", "com.victronenergy.pvinverter.sungrow01")
	viper.SetDefault("inverter.device_instance", 20)
	viper.SetDefault("inverter.product_name", "Sungrow Inverter")
	viper.SetDefault("inverter.position", 1)
	viper.SetDefault("meter.enable", true)
	viper.SetDefault("meter.service_name", "com.victronenergy.grid.sungrow_meter")
	viper.SetDefault("meter.device_instance", 30)
	viper.SetDefault("meter.product_name", "Sungrow Meter")
	viper.SetDefault("bus.targets", []string{config.BUS_TARGET_MQTT})
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.portal_id", "venus")
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
