package schedutil

import (
	"context"
	"time"

	"github.com/reugn/go-quartz/quartz"
)

// RunTrigger calls fn at every fire time of trigger until ctx is done.
// Fire times already in the past when fn returns are skipped, so a slow fn
// never causes a burst of calls.
func RunTrigger(ctx context.Context, trigger quartz.Trigger, fn func(time.Time)) error {
	next, err := trigger.NextFireTime(time.Now().UnixNano())
	if err != nil {
		return err
	}
	timer := time.NewTimer(time.Until(time.Unix(0, next)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fired := <-timer.C:
			fn(fired)
			now := time.Now().UnixNano()
			for next <= now {
				next, err = trigger.NextFireTime(next)
				if err != nil {
					return err
				}
			}
			timer.Reset(time.Until(time.Unix(0, next)))
		}
	}
}

// RunEvery is RunTrigger over a fixed interval trigger.
func RunEvery(ctx context.Context, interval time.Duration, fn func(time.Time)) error {
	return RunTrigger(ctx, quartz.NewSimpleTrigger(interval), fn)
}
