package actor

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	adactor "github.com/berfenger/sungrow2venus/internal/adapter/actor"
	"github.com/berfenger/sungrow2venus/internal/adapter/bus"
	"github.com/berfenger/sungrow2venus/internal/config"
	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"
	"github.com/berfenger/sungrow2venus/internal/core/service"
	"github.com/berfenger/sungrow2venus/internal/mqtt"
	. "github.com/berfenger/sungrow2venus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const DEFAULT_REQUEST_TIMEOUT = 2 * time.Second

type MQTTActorProvider func() *adactor.MQTTActor

type ModbusActorProvider func() *adactor.ModbusActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	services            []domain.ServiceInfo
	buses               []port.Bus
	fanOut              *bus.FanOutBus
	currentHealthCheck  healthCheckResult
	modbusActor         *actor.PID
	mqttActor           *actor.PID
	deviceActors        map[domain.DeviceKind]*actor.PID
	modbusActorProvider ModbusActorProvider
	mqttActorProvider   MQTTActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	expected       int
	checksReceived int
	respondTo      *actor.PID
}

// NewMasterOfPuppetsActor supervises the modbus actor, the optional MQTT actor and one
// device actor per service. mqttActorProvider may be nil when MQTT is disabled.
func NewMasterOfPuppetsActor(config config.Config, services []domain.ServiceInfo, buses []port.Bus,
	modbusActorProvider ModbusActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		services:            services,
		buses:               buses,
		deviceActors:        map[domain.DeviceKind]*actor.PID{},
		modbusActorProvider: modbusActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start Modbus child
		modbusActorPID, err := state.startModbusActor(ctx)
		if err != nil {
			panic(err)
		}
		state.modbusActor = modbusActorPID

		buses := state.buses
		// start MQTT child
		if state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
			buses = append(buses, bus.NewMQTTBus(ctx.ActorSystem().Root, mqttActorPID, state.logger))
		}

		// start one child per device service
		state.fanOut = bus.NewFanOutBus(buses...)
		for _, svc := range state.services {
			pid, err := state.startDeviceActor(ctx, state.fanOut, svc)
			if err != nil {
				panic(err)
			}
			state.deviceActors[svc.Kind] = pid
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.childCount())
		state.currentHealthCheck.respondTo = ctx.Sender()
		state.requestHealth(ctx, state.modbusActor, domain.ACTOR_ID_MODBUS)
		if state.mqttActor != nil {
			state.requestHealth(ctx, state.mqttActor, domain.ACTOR_ID_MQTT)
		}
		for kind, pid := range state.deviceActors {
			state.requestHealth(ctx, pid, string(kind))
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetDeviceStateRequest:
		pid, ok := state.deviceActors[msg.Device]
		if !ok {
			ForRequest(msg).Respond(ctx, domain.GetDeviceStateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: fmt.Errorf("%w: %s", domain.ErrUnknownDevice, msg.Device),
				},
			})
			return
		}
		ctx.RequestWithCustomSender(pid, msg, ForRequest(msg).ReplyTo(ctx))
	case domain.GetExportLimitRequest:
		sender := ForRequest(msg).ReplyTo(ctx)
		ctx.ReenterAfter(ctx.RequestFuture(state.modbusActor, msg, state.requestTimeout()), func(res any, err error) {
			resp, ok := res.(domain.GetExportLimitResponse)
			if err != nil || !ok {
				resp = domain.GetExportLimitResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: orTimeout(err)}}
			}
			if !resp.HasResponseError() && resp.Limit != nil {
				state.publishExportLimit(ctx, resp.Limit.Percent)
			}
			if sender != nil {
				ctx.Send(sender, resp)
			}
		})
	case domain.SetExportLimitRequest:
		state.setExportLimit(ctx, msg.Percent, ForRequest(msg).ReplyTo(ctx))
	case adactor.ParsedCommand:
		// commands received over MQTT have nobody to reply to
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil && msg.Command.Command == mqtt.MQTT_COMMAND_EXPORT_LIMIT {
			state.setExportLimit(ctx, msg.Command.Value, nil)
		}
	case *actor.Stopped:
		// children and their tickers are already stopped
		if state.fanOut != nil {
			if err := state.fanOut.Close(); err != nil {
				state.logger.Warn("master@default could not close buses", zap.Error(err))
			}
		}
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == ChildId(ctx.Self().Id, domain.ACTOR_ID_MODBUS) {
			state.logger.Error("master@default modbus error")
			panic(errors.New("modbus terminated"))
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) requestHealth(ctx actor.Context, pid *actor.PID, id string) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
		}
	})
}

func (state *MasterOfPuppetsActor) setExportLimit(ctx actor.Context, percent float64, sender *actor.PID) {
	req := domain.SetExportLimitRequest{Percent: percent}
	ctx.ReenterAfter(ctx.RequestFuture(state.modbusActor, req, state.requestTimeout()), func(res any, err error) {
		resp, ok := res.(domain.SetExportLimitResponse)
		if err != nil || !ok {
			resp = domain.SetExportLimitResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: orTimeout(err)}}
		}
		if resp.HasResponseError() {
			state.logger.Warn("master@default could not set export limit", zap.Float64("percent", percent), zap.Error(resp.GetResponseError()))
		} else {
			state.logger.Info("master@default export limit set", zap.Float64("percent", percent))
			state.publishExportLimit(ctx, percent)
		}
		if sender != nil {
			ctx.Send(sender, resp)
		}
	})
}

func (state *MasterOfPuppetsActor) publishExportLimit(ctx actor.Context, percent float64) {
	if state.mqttActor == nil {
		return
	}
	ctx.Send(state.mqttActor, domain.PublishMessageRequest{
		Topic:   mqtt.ExportLimitStateTopic(state.config.MQTT.PortalId),
		Payload: strconv.FormatFloat(percent, 'f', 1, 64),
		Retain:  true,
	})
}

func (state *MasterOfPuppetsActor) requestTimeout() time.Duration {
	if state.config.MonitorConfig.PollTimeoutMillis == 0 {
		return DEFAULT_REQUEST_TIMEOUT
	}
	return time.Duration(state.config.MonitorConfig.PollTimeoutMillis) * time.Millisecond
}

func (state *MasterOfPuppetsActor) childCount() int {
	n := 1 + len(state.deviceActors)
	if state.mqttActor != nil {
		n++
	}
	return n
}

func (state *MasterOfPuppetsActor) startModbusActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	modbusProps := actor.PropsFromProducer(func() actor.Actor {
		return state.modbusActorProvider()
	}, actor.WithSupervisor(supervisor))
	modbusActorPID, err := ctx.SpawnNamed(modbusProps, domain.ACTOR_ID_MODBUS)
	if err != nil {
		return nil, err
	}

	return modbusActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startDeviceActor(ctx actor.Context, b port.Bus, svc domain.ServiceInfo) (*actor.PID, error) {

	sink, err := b.Service(svc)
	if err != nil {
		return nil, err
	}
	// the cycle outlives actor restarts, so energy totals survive a crash
	cycle := service.NewPollCycle(svc.Kind, sink,
		time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond,
		ActorLogger(string(svc.Kind), state.logger))

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, decider)

	deviceProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(svc, cycle, state.modbusActor, state.requestTimeout(), state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(deviceProps, string(svc.Kind))
}

func (state *healthCheckResult) reset(expected int) {
	state.healthy = map[string]bool{}
	state.expected = expected
	state.checksReceived = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	if len(state.healthy) < state.expected {
		return false
	}
	for _, healthy := range state.healthy {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}

func orTimeout(err error) error {
	if err == nil {
		return errors.New("unexpected response")
	}
	return err
}
