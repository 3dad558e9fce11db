package runner

import (
	"context"
	"time"
)

// producer generates the tasks of one phase.
type producer struct {
	render   *renderer
	pacer    pacer
	requests *uint64
	duration *time.Duration
	now      func() time.Time
}

// run sends tasks until an end condition holds or ctx is cancelled, then
// closes tasks. Only a rendering failure is returned.
func (p *producer) run(ctx context.Context, tasks chan<- Task) error {
	defer close(tasks)

	start := p.now()
	if p.duration != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *p.duration)
		defer cancel()
	}

	var sent uint64
	for {
		if p.requests != nil && sent >= *p.requests {
			return nil
		}
		if p.duration != nil && p.now().Sub(start) >= *p.duration {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if p.pacer != nil {
			if err := p.pacer.Wait(ctx); err != nil {
				return nil
			}
		}

		task, err := p.render.next()
		if err != nil {
			return err
		}

		select {
		case tasks <- task:
			sent++
		case <-ctx.Done():
			return nil
		}
	}
}
