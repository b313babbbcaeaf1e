package core_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestStabilityDetector_NeedsFullWindow(t *testing.T) {
	d := core.NewStabilityDetector(dec(t, "0.5"), 0)
	now := time.Now()

	// Nine identical samples are still insufficient history.
	for i := 0; i < 9; i++ {
		if d.Accept(dec(t, "1000"), now) {
			t.Fatalf("stable after %d samples, want at least 10", i+1)
		}
	}
	if !d.Accept(dec(t, "1000"), now) {
		t.Error("tenth identical sample with no dwell should be stable")
	}
}

func TestStabilityDetector_DwellTime(t *testing.T) {
	d := core.NewStabilityDetector(dec(t, "0.5"), 3*time.Second)
	start := time.Now()

	for i := 0; i < 10; i++ {
		if d.Accept(dec(t, "1000"), start) {
			t.Fatal("stable before dwell time elapsed")
		}
	}
	if d.Accept(dec(t, "1000"), start.Add(2*time.Second)) {
		t.Error("stable at 2s, dwell is 3s")
	}
	if !d.Accept(dec(t, "1000"), start.Add(3*time.Second)) {
		t.Error("not stable at 3s with a settled window")
	}
}

func TestStabilityDetector_OutOfToleranceRestartsDwell(t *testing.T) {
	d := core.NewStabilityDetector(dec(t, "0.5"), 3*time.Second)
	start := time.Now()

	for i := 0; i < 10; i++ {
		d.Accept(dec(t, "1000"), start)
	}
	// A spike wider than the tolerance clears the dwell clock.
	if d.Accept(dec(t, "1002"), start.Add(4*time.Second)) {
		t.Fatal("stable through an out-of-tolerance spike")
	}
	// The spike stays in the ten-sample window for nine more samples.
	for i := 0; i < 9; i++ {
		if d.Accept(dec(t, "1000"), start.Add(5*time.Second)) {
			t.Fatal("stable while spike still in window")
		}
	}
	// Window settled again; dwell restarts from here.
	if d.Accept(dec(t, "1000"), start.Add(6*time.Second)) {
		t.Error("stable immediately after window settled, dwell should restart")
	}
	if !d.Accept(dec(t, "1000"), start.Add(9*time.Second)) {
		t.Error("not stable after full dwell on a settled window")
	}
}

func TestStabilityDetector_JitterWithinTolerance(t *testing.T) {
	d := core.NewStabilityDetector(dec(t, "0.5"), 0)
	now := time.Now()

	samples := []string{"1000.0", "1000.2", "999.9", "1000.1", "1000.3",
		"1000.0", "999.8", "1000.2", "1000.1", "1000.0"}
	var last bool
	for _, s := range samples {
		last = d.Accept(dec(t, s), now)
	}
	if !last {
		t.Error("jitter inside tolerance should read as stable")
	}
}

func TestStabilityDetector_Reset(t *testing.T) {
	d := core.NewStabilityDetector(dec(t, "0.5"), 0)
	now := time.Now()

	for i := 0; i < 10; i++ {
		d.Accept(dec(t, "1000"), now)
	}
	d.Reset()
	if d.Accept(dec(t, "1000"), now) {
		t.Error("stable right after reset, history should be gone")
	}
}

func TestNewStabilityDetector_DefaultTolerance(t *testing.T) {
	// Non-positive tolerance falls back to 0.5: a 0.4 spread stays stable,
	// a 0.6 spread does not.
	d := core.NewStabilityDetector(decimal.Zero, 0)
	now := time.Now()
	for i := 0; i < 9; i++ {
		d.Accept(dec(t, "100.0"), now)
	}
	if !d.Accept(dec(t, "100.4"), now) {
		t.Error("0.4 spread should be inside the default tolerance")
	}

	d.Reset()
	for i := 0; i < 9; i++ {
		d.Accept(dec(t, "100.0"), now)
	}
	if d.Accept(dec(t, "100.6"), now) {
		t.Error("0.6 spread should be outside the default tolerance")
	}
}

func TestZeroToleranceFor(t *testing.T) {
	tests := []struct {
		unit       string
		configured string
		want       string
	}{
		{"KG", "0", "0.1"},
		{"kg", "0", "0.1"},
		{"LB", "0", "0.2"},
		{"T", "0", "0.0001"},
		{"KG", "0.05", "0.05"},
		{"T", "0.01", "0.01"},
	}
	for _, tt := range tests {
		got := core.ZeroToleranceFor(tt.unit, dec(t, tt.configured))
		if got.String() != tt.want {
			t.Errorf("ZeroToleranceFor(%q, %s) = %s, want %s", tt.unit, tt.configured, got, tt.want)
		}
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		weight string
		unit   string
		want   bool
	}{
		{"0", "KG", true},
		{"0.05", "KG", true},
		{"-0.05", "KG", true},
		{"0.1", "KG", false},
		{"0.15", "LB", true},
		{"0.0002", "T", false},
	}
	for _, tt := range tests {
		if got := core.IsZero(dec(t, tt.weight), tt.unit, decimal.Zero); got != tt.want {
			t.Errorf("IsZero(%s %s) = %v, want %v", tt.weight, tt.unit, got, tt.want)
		}
	}
}
