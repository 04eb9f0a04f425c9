package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type taskResult struct {
	value int
	err   error
}

func TestBackgroundTaskSuccess(t *testing.T) {

	assert := assert.New(t)

	var got *taskResult
	NewBackgroundTask(nil, func() (*taskResult, error) {
		return &taskResult{value: 42}, nil
	}).OnSuccess(func(r taskResult) {
		got = &r
	}).Run()

	assert.NotNil(got)
	assert.Equal(42, got.value)
}

func TestBackgroundTaskRecover(t *testing.T) {

	assert := assert.New(t)

	failure := errors.New("connection refused")
	var got *taskResult
	NewBackgroundTask(nil, func() (*taskResult, error) {
		return nil, failure
	}).Recover(func(err error) taskResult {
		return taskResult{err: err}
	}).OnSuccess(func(r taskResult) {
		got = &r
	}).Run()

	assert.NotNil(got)
	assert.ErrorIs(got.err, failure)
}

func TestBackgroundTaskTimeout(t *testing.T) {

	assert := assert.New(t)

	var got *taskResult
	start := time.Now()
	NewBackgroundTask(nil, func() (*taskResult, error) {
		time.Sleep(2 * time.Second)
		return &taskResult{value: 1}, nil
	}).Recover(func(err error) taskResult {
		return taskResult{err: err}
	}).OnSuccess(func(r taskResult) {
		got = &r
	}).WithTimeout(100 * time.Millisecond).Run()

	assert.Less(time.Since(start), time.Second)
	assert.NotNil(got)
	assert.ErrorIs(got.err, ErrTaskTimeout)
}

func TestMapBackgroundTask(t *testing.T) {

	assert := assert.New(t)

	var got string
	task := NewBackgroundTask(nil, func() (*taskResult, error) {
		return &taskResult{value: 7}, nil
	})
	MapBackgroundTask(task, func(r *taskResult) *string {
		s := "value"
		if r.value == 7 {
			s = "seven"
		}
		return &s
	}).OnSuccess(func(s string) {
		got = s
	}).Run()

	assert.Equal("seven", got)
}

func TestActorWithStatesNames(t *testing.T) {

	assert := assert.New(t)

	s := NewActorWithStates()
	assert.Equal("", s.StateName())
	s.Become(NamedState{StateName: "idle"})
	s.BecomeStacked(NamedState{StateName: "polling"})
	assert.Equal("polling", s.StateName())
	s.UnbecomeStacked()
	assert.Equal("idle", s.StateName())
	s.Become(NamedState{StateName: "starting"})
	assert.Equal("starting", s.StateName())
}
