package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("dynamics", "inno_vtol")).Info(context.Background(), "step", Float("dt", 0.001))

	out := buf.String()
	if !strings.Contains(out, `"dynamics":"inno_vtol"`) {
		t.Errorf("expected dynamics field, got %s", out)
	}
	if !strings.Contains(out, `"dt":0.001`) {
		t.Errorf("expected dt field, got %s", out)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %s", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %s", buf.String())
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(time.Second)
	current := time.Unix(100, 0)
	th.now = func() time.Time { return current }

	if !th.Allow("airspeed") {
		t.Fatal("first call should pass")
	}
	if th.Allow("airspeed") {
		t.Error("second call within interval should be throttled")
	}
	if !th.Allow("cal") {
		t.Error("keys are throttled independently")
	}

	current = current.Add(1100 * time.Millisecond)
	if !th.Allow("airspeed") {
		t.Error("call after interval should pass")
	}
}

func TestNilThrottleAllows(t *testing.T) {
	var th *Throttle
	if !th.Allow("x") {
		t.Error("nil throttle should always allow")
	}
}
