package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"
	"github.com/berfenger/sungrow2venus/internal/util/actorutil"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	// consecutive transport faults before the transport is reopened by the supervisor
	MODBUS_MAX_FAULTS = 3
)

var ErrExportLimitUnsupported = errors.New("export limit is not available")

type ModbusActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	transport sungrow_modbus.RegisterTransport
	pollers   map[domain.DeviceKind]port.DevicePoller
	limiter   port.ExportLimiter
	timeout   time.Duration
	faults    int
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
	err     error
}

func NewModbusActor(transport sungrow_modbus.RegisterTransport, pollers []port.DevicePoller, limiter port.ExportLimiter,
	timeout time.Duration, logger *zap.Logger) *ModbusActor {
	byKind := make(map[domain.DeviceKind]port.DevicePoller, len(pollers))
	for _, p := range pollers {
		byKind[p.Kind()] = p
	}
	act := &ModbusActor{
		transport: transport,
		pollers:   byKind,
		limiter:   limiter,
		timeout:   timeout,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_MODBUS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@starting started", zap.String("transport", state.transport.String()))
		if err := state.transport.Open(); err != nil {
			state.logger.Error("modbus@starting could not open transport", zap.Error(err))
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.transport.Close()
	default:
		state.logger.Debug("modbus@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("modbus@default: GetDeviceInfoRequest", zap.String("device", string(msg.Device)))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		poller, err := state.poller(msg.Device)
		if err != nil {
			ctx.Send(sender, domain.GetDeviceInfoResponse{ActorResponseMixIn: errorMixIn(err)})
			return
		}
		state.runTask(ctx, actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, poller.Info),
			func(info *domain.DeviceInfo) *backgroundTaskResult {
				return &backgroundTaskResult{
					message: domain.GetDeviceInfoResponse{Info: info},
					replyTo: sender,
				}
			}), func(err error) any {
			return domain.GetDeviceInfoResponse{ActorResponseMixIn: errorMixIn(err)}
		}, sender)
	case domain.PollDeviceRequest:
		state.logger.Debug("modbus@default: PollDeviceRequest", zap.String("device", string(msg.Device)))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		poller, err := state.poller(msg.Device)
		if err != nil {
			ctx.Send(sender, domain.PollDeviceResponse{ActorResponseMixIn: errorMixIn(err)})
			return
		}
		state.runTask(ctx, actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, poller.Poll),
			func(outcome *domain.PollOutcome) *backgroundTaskResult {
				return &backgroundTaskResult{
					message: domain.PollDeviceResponse{Outcome: outcome},
					replyTo: sender,
				}
			}), func(err error) any {
			return domain.PollDeviceResponse{ActorResponseMixIn: errorMixIn(err)}
		}, sender)
	case domain.GetExportLimitRequest:
		state.logger.Debug("modbus@default: GetExportLimitRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if state.limiter == nil {
			ctx.Send(sender, domain.GetExportLimitResponse{ActorResponseMixIn: errorMixIn(ErrExportLimitUnsupported)})
			return
		}
		state.runTask(ctx, actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.limiter.GetExportLimit),
			func(limit *sungrow_modbus.ExportLimit) *backgroundTaskResult {
				return &backgroundTaskResult{
					message: domain.GetExportLimitResponse{Limit: limit},
					replyTo: sender,
				}
			}), func(err error) any {
			return domain.GetExportLimitResponse{ActorResponseMixIn: errorMixIn(err)}
		}, sender)
	case domain.SetExportLimitRequest:
		state.logger.Info("modbus@default: SetExportLimitRequest", zap.Float64("percent", msg.Percent))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if state.limiter == nil {
			ctx.Send(sender, domain.SetExportLimitResponse{ActorResponseMixIn: errorMixIn(ErrExportLimitUnsupported)})
			return
		}
		percent := msg.Percent
		state.runTask(ctx, actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskErr(ctx, func() error {
			return state.limiter.SetExportLimit(percent)
		}), func(*any) *backgroundTaskResult {
			return &backgroundTaskResult{
				message: domain.SetExportLimitResponse{},
				replyTo: sender,
			}
		}), func(err error) any {
			return domain.SetExportLimitResponse{ActorResponseMixIn: errorMixIn(err)}
		}, sender)
	case *actor.Stopping:
		state.transport.Close()
	case *actor.Restarting:
		state.transport.Close()
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// WaitingModbus keeps the transport exclusive: one register operation at a time.
func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
		state.trackFault(msg.err)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: true,
			State:   "busy",
		})
	case *actor.Stopping:
		state.transport.Close()
	case *actor.Restarting:
		state.transport.Close()
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) runTask(ctx actor.Context, task *actorutil.SafeBackgroundTask[backgroundTaskResult],
	onError func(error) any, sender *actor.PID) {
	task.Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: onError(err),
			replyTo: sender,
			err:     err,
		}
	}).WithTimeout(state.timeout).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingModbus)
}

// trackFault panics after too many consecutive transport faults or timeouts so
// the supervisor restarts the actor with a fresh connection.
func (state *ModbusActor) trackFault(err error) {
	if err == nil {
		state.faults = 0
		return
	}
	state.logger.Warn("modbus@WaitingModbus register operation failed", zap.Error(err))
	// a hung transport counts the same as a failed one
	if !sungrow_modbus.IsTransportFault(err) && !errors.Is(err, actorutil.ErrTaskTimeout) {
		return
	}
	state.faults++
	if state.faults >= MODBUS_MAX_FAULTS {
		state.faults = 0
		panic(fmt.Errorf("modbus transport: %d consecutive faults: %w", MODBUS_MAX_FAULTS, err))
	}
}

func (state *ModbusActor) poller(kind domain.DeviceKind) (port.DevicePoller, error) {
	poller, ok := state.pollers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDevice, kind)
	}
	return poller, nil
}

func errorMixIn(err error) domain.ActorResponseMixIn {
	return domain.ActorResponseMixIn{
		ResponseError: err,
	}
}
