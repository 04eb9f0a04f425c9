package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/service"
	. "github.com/berfenger/sungrow2venus/internal/util/actorutil"
	"github.com/berfenger/sungrow2venus/internal/util/schedutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	DEVICE_STATE_STARTING     = "starting"
	DEVICE_STATE_WAITING_INFO = "waiting_info"
	DEVICE_STATE_IDLE         = "idle"
	DEVICE_STATE_POLLING      = "polling"
)

var errInfoUnavailable = errors.New("device info unavailable")

// DeviceActor drives the poll cycle of one device. It holds at most one
// request in flight to the modbus actor; ticks arriving meanwhile are dropped.
type DeviceActor struct {
	ActorWithStates
	stash *Stash

	service        domain.ServiceInfo
	cycle          *service.PollCycle
	modbusActor    *actor.PID
	requestTimeout time.Duration
	declared       bool
	droppedTicks   uint64
	stopTicker     context.CancelFunc

	logger *zap.Logger
}

type pollTick struct {
	At time.Time
}

func NewDeviceActor(svc domain.ServiceInfo, cycle *service.PollCycle, modbusActor *actor.PID,
	requestTimeout time.Duration, logger *zap.Logger) *DeviceActor {
	act := &DeviceActor{
		ActorWithStates: NewActorWithStates(),
		stash:           &Stash{},
		service:         svc,
		cycle:           cycle,
		modbusActor:     modbusActor,
		requestTimeout:  requestTimeout,
		logger:          ActorLogger(string(svc.Kind), logger),
	}
	act.Become(NamedState{StateName: DEVICE_STATE_STARTING, Fn: act.StartingReceive})
	return act
}

func (state *DeviceActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@starting started", zap.String("service", state.service.ServiceName))
		state.startTicker(ctx)
		state.requestInfo(ctx)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.stopTicking()
	default:
		state.logger.Debug("device@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() || msg.Info == nil {
			err := msg.GetResponseError()
			if err == nil {
				err = errInfoUnavailable
			}
			state.logger.Warn("device@waiting_info could not read device info, retrying on next tick", zap.Error(err))
			state.cycle.Fail(err)
		} else {
			state.logger.Info("device@waiting_info declared",
				zap.String("service", state.service.ServiceName),
				zap.Int("product_id", msg.Info.ProductId))
			state.cycle.Declare(state.service, *msg.Info)
			state.declared = true
		}
		state.Become(NamedState{StateName: DEVICE_STATE_IDLE, Fn: state.IdleReceive})
	case pollTick:
		state.dropTick()
	default:
		state.commonReceive(ctx)
	}
}

func (state *DeviceActor) IdleReceive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case pollTick:
		if !state.declared {
			state.requestInfo(ctx)
			return
		}
		state.requestPoll(ctx)
	default:
		state.commonReceive(ctx)
	}
}

func (state *DeviceActor) PollingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PollDeviceResponse:
		if msg.HasResponseError() {
			state.cycle.Complete(nil, msg.GetResponseError())
		} else {
			state.cycle.Complete(msg.Outcome, nil)
		}
		state.Become(NamedState{StateName: DEVICE_STATE_IDLE, Fn: state.IdleReceive})
	case pollTick:
		state.dropTick()
	default:
		state.commonReceive(ctx)
	}
}

func (state *DeviceActor) commonReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("device@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      string(state.service.Kind),
			Healthy: true,
			State:   state.StateName(),
		})
	case domain.GetDeviceStateRequest:
		s := state.cycle.State()
		ForRequest(msg).Respond(ctx, domain.GetDeviceStateResponse{
			State: &s,
		})
	case *actor.Stopping:
		state.stopTicking()
	case *actor.Restarting:
		state.stopTicking()
	default:
		state.logger.Debug("device@default unhandled", zap.String("state", state.StateName()), zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeviceActor) requestInfo(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, domain.GetDeviceInfoRequest{Device: state.service.Kind}, state.requestTimeout), func(err error) any {
		return domain.GetDeviceInfoResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.Become(NamedState{StateName: DEVICE_STATE_WAITING_INFO, Fn: state.WaitingInfoReceive})
}

func (state *DeviceActor) requestPoll(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, domain.PollDeviceRequest{Device: state.service.Kind}, state.requestTimeout), func(err error) any {
		return domain.PollDeviceResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.Become(NamedState{StateName: DEVICE_STATE_POLLING, Fn: state.PollingReceive})
}

func (state *DeviceActor) dropTick() {
	state.droppedTicks++
	state.logger.Warn("device@busy tick dropped, previous request still in flight",
		zap.String("state", state.StateName()), zap.Uint64("dropped", state.droppedTicks))
}

func (state *DeviceActor) startTicker(ctx actor.Context) {
	interval := state.cycle.Interval()
	if interval <= 0 {
		return
	}
	tickCtx, cancel := context.WithCancel(context.Background())
	state.stopTicker = cancel
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	go func() {
		err := schedutil.RunEvery(tickCtx, interval, func(at time.Time) {
			root.Send(self, pollTick{At: at})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			state.logger.Error("device@ticker stopped", zap.Error(err))
		}
	}()
}

func (state *DeviceActor) stopTicking() {
	if state.stopTicker != nil {
		state.stopTicker()
		state.stopTicker = nil
	}
}
