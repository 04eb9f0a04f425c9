package service

import (
	"time"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"
	"go.uber.org/zap"
)

// PollCycle owns the state of one device and mirrors it to a sink.
// It is not safe for concurrent use; the device actor serializes access.
type PollCycle struct {
	state    *domain.DeviceState
	table    domain.QuantityTable
	sink     port.Sink
	interval time.Duration
	logger   *zap.Logger
}

func NewPollCycle(kind domain.DeviceKind, sink port.Sink, interval time.Duration, logger *zap.Logger) *PollCycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollCycle{
		state:    domain.NewDeviceState(kind),
		table:    domain.NewQuantityTable(kind),
		sink:     sink,
		interval: interval,
		logger:   logger,
	}
}

// Declare publishes static paths and every dynamic path at its initial value.
// The device is reported disconnected until the first successful cycle.
func (c *PollCycle) Declare(svc domain.ServiceInfo, info domain.DeviceInfo) {
	for _, pv := range svc.StaticPaths(info) {
		c.sink.SetPath(pv.Path, pv.Value)
	}
	for _, pv := range c.table.Declare() {
		c.sink.SetPath(pv.Path, pv.Value)
	}
	c.sink.SetPath(domain.PATH_CONNECTED, domain.ConnectedValue(false))
}

// Commit applies a successful poll and publishes the updated values.
func (c *PollCycle) Commit(outcome domain.PollOutcome) {
	c.state.Apply(outcome, c.interval)
	for _, pv := range c.table.Values(c.state) {
		c.sink.SetPath(pv.Path, pv.Value)
	}
	c.sink.SetPath(domain.PATH_CONNECTED, domain.ConnectedValue(true))
}

// Fail reports the device disconnected. No other path is written.
func (c *PollCycle) Fail(err error) {
	c.logger.Warn("poll cycle failed", zap.String("device", string(c.state.Kind)), zap.Error(err))
	c.state.Fail(err)
	c.sink.SetPath(domain.PATH_CONNECTED, domain.ConnectedValue(false))
}

func (c *PollCycle) Complete(outcome *domain.PollOutcome, err error) {
	if err != nil || outcome == nil {
		c.Fail(err)
		return
	}
	c.Commit(*outcome)
}

// Run performs a full synchronous cycle.
func (c *PollCycle) Run(poller port.DevicePoller) error {
	outcome, err := poller.Poll()
	c.Complete(outcome, err)
	return err
}

func (c *PollCycle) State() domain.DeviceState {
	return c.state.Snapshot()
}

func (c *PollCycle) Interval() time.Duration {
	return c.interval
}
