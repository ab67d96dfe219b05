package vmix

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

type jobResult[T any] struct {
	value T
	err   error
}

// jobSlot runs at most one background job of a kind. A request made while
// a job is in flight is dropped. Results are collected by poll on the
// update goroutine, which also frees the slot.
type jobSlot[T any] struct {
	kind    string
	sem     *semaphore.Weighted
	result  chan jobResult[T]
	running atomic.Bool
}

func newJobSlot[T any](kind string) *jobSlot[T] {
	return &jobSlot[T]{
		kind:   kind,
		sem:    semaphore.NewWeighted(1),
		result: make(chan jobResult[T], 1),
	}
}

// busy reports whether a job is in flight or its result is unclaimed.
func (j *jobSlot[T]) busy() bool { return j.running.Load() }

// acquire reserves the slot. It returns false when a job is in flight.
func (j *jobSlot[T]) acquire() bool {
	if !j.sem.TryAcquire(1) {
		jobsTotal.WithLabelValues(j.kind, "dropped").Inc()
		return false
	}
	j.running.Store(true)
	return true
}

// run starts fn on a new goroutine inside a span named after the job. The
// slot must have been acquired.
func (j *jobSlot[T]) run(ctx context.Context, target string, fn func(context.Context) (T, error)) {
	go func() {
		ctx, span := tracer.Start(ctx, "vmix."+j.kind,
			trace.WithAttributes(attribute.String("vmix.target", target)))
		start := time.Now()

		var r jobResult[T]
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.err = fmt.Errorf("vmix: %s job panic: %v", j.kind, p)
				}
			}()
			r.value, r.err = fn(ctx)
		}()

		jobDuration.WithLabelValues(j.kind).Observe(time.Since(start).Seconds())
		if r.err != nil {
			span.RecordError(r.err)
			span.SetStatus(codes.Error, r.err.Error())
		}
		span.End()
		j.result <- r
	}()
}

// start acquires the slot and runs fn, or returns ErrBusy.
func (j *jobSlot[T]) start(ctx context.Context, target string, fn func(context.Context) (T, error)) error {
	if !j.acquire() {
		return fmt.Errorf("%s %s: %w", j.kind, target, ErrBusy)
	}
	j.run(ctx, target, fn)
	return nil
}

// poll waits up to timeout for the job result. ok is false when no result
// is available yet.
func (j *jobSlot[T]) poll(timeout time.Duration) (value T, ok bool, err error) {
	if !j.running.Load() {
		return value, false, nil
	}
	var r jobResult[T]
	if timeout <= 0 {
		select {
		case r = <-j.result:
		default:
			return value, false, nil
		}
	} else {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case r = <-j.result:
		case <-t.C:
			return value, false, nil
		}
	}
	j.running.Store(false)
	j.sem.Release(1)
	status := "ok"
	if r.err != nil {
		status = "error"
	}
	jobsTotal.WithLabelValues(j.kind, status).Inc()
	return r.value, true, r.err
}
