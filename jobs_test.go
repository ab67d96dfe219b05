package vmix

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJobSlotSingleFlight(t *testing.T) {
	j := newJobSlot[int]("test")
	release := make(chan struct{})
	err := j.start(context.Background(), "a", func(context.Context) (int, error) {
		<-release
		return 7, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !j.busy() {
		t.Error("busy while running")
	}
	err = j.start(context.Background(), "b", func(context.Context) (int, error) { return 0, nil })
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second start: err = %v", err)
	}
	if _, ok, _ := j.poll(0); ok {
		t.Error("no result while the job runs")
	}

	close(release)
	v, ok, err := j.poll(time.Second)
	if !ok || err != nil || v != 7 {
		t.Errorf("poll = %d, %v, %v", v, ok, err)
	}
	if j.busy() {
		t.Error("slot is freed by poll")
	}
	if _, ok, _ := j.poll(time.Second); ok {
		t.Error("a result is delivered once")
	}
}

func TestJobSlotError(t *testing.T) {
	j := newJobSlot[string]("test")
	boom := errors.New("boom")
	if err := j.start(context.Background(), "x", func(context.Context) (string, error) { return "", boom }); err != nil {
		t.Fatal(err)
	}
	_, ok, err := j.poll(time.Second)
	if !ok || !errors.Is(err, boom) {
		t.Errorf("poll = %v, %v", ok, err)
	}
	if err := j.start(context.Background(), "y", func(context.Context) (string, error) { return "y", nil }); err != nil {
		t.Errorf("slot reusable after an error: %v", err)
	}
	if v, _, _ := j.poll(time.Second); v != "y" {
		t.Errorf("value = %q", v)
	}
}

func TestJobSlotRecoversPanic(t *testing.T) {
	j := newJobSlot[int]("test")
	if err := j.start(context.Background(), "p", func(context.Context) (int, error) { panic("oops") }); err != nil {
		t.Fatal(err)
	}
	_, ok, err := j.poll(time.Second)
	if !ok || err == nil {
		t.Fatalf("poll = %v, %v", ok, err)
	}
	if j.busy() {
		t.Error("slot is freed after a panic")
	}
}

func TestJobSlotIdlePoll(t *testing.T) {
	j := newJobSlot[int]("test")
	start := time.Now()
	if _, ok, err := j.poll(time.Second); ok || err != nil {
		t.Errorf("idle poll = %v, %v", ok, err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("idle poll returns at once")
	}
}
