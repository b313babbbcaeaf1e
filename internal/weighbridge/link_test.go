package weighbridge

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// scriptedSource hands its ingest handler back to the test so lines can be
// pushed by hand.
type scriptedSource struct {
	handler func([]byte)
	stopped bool
}

func (s *scriptedSource) Start(handler func([]byte)) error {
	s.handler = handler
	return nil
}

func (s *scriptedSource) Stop() { s.stopped = true }

type failingSource struct{}

func (failingSource) Start(func([]byte)) error { return errors.New("no such device") }
func (failingSource) Stop()                    {}

type eventLog struct {
	raw       []string
	readings  []core.WeightReading
	stability []bool
	zero      []bool
}

func (l *eventLog) events() Events {
	return Events{
		RawLine:   func(line string) { l.raw = append(l.raw, line) },
		Reading:   func(r core.WeightReading) { l.readings = append(l.readings, r) },
		Stability: func(s bool) { l.stability = append(l.stability, s) },
		Zero:      func(z bool) { l.zero = append(l.zero, z) },
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// testManager builds an open manager fed by a scripted source and a manual
// clock.
func testManager(t *testing.T, cfg Config, events Events) (*Manager, *scriptedSource, *time.Time) {
	t.Helper()
	m, err := NewManager(cfg, events, quietLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	src := &scriptedSource{}
	m.hardware = func(Config, *log.Logger) LineSource { return src }
	clock := time.Now()
	m.now = func() time.Time { return clock }
	if err := m.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m, src, &clock
}

func instantConfig() Config {
	cfg := DefaultConfig()
	cfg.StableTime = 0 // stability as soon as the window settles
	return cfg
}

func TestManager_FramingAndReadings(t *testing.T) {
	var got eventLog
	m, src, _ := testManager(t, instantConfig(), got.events())
	defer m.Close()

	// One chunk, several delimiters, a blank line, CRLF collapsed.
	src.handler([]byte("1000 kg\r\n\r\n1001 kg\n"))
	// A line split across chunks, including a CRLF pair split at the
	// chunk boundary.
	src.handler([]byte("1002 k"))
	src.handler([]byte("g\r"))
	src.handler([]byte("\n1003 kg\r\n"))

	want := []string{"1000 kg", "1001 kg", "1002 kg", "1003 kg"}
	if len(got.raw) != len(want) {
		t.Fatalf("raw lines = %q, want %q", got.raw, want)
	}
	for i, line := range want {
		if got.raw[i] != line {
			t.Errorf("raw[%d] = %q, want %q", i, got.raw[i], line)
		}
	}
	if len(got.readings) != 4 {
		t.Fatalf("got %d readings, want 4", len(got.readings))
	}
	if got.readings[2].Weight.String() != "1002" || got.readings[2].Unit != "KG" {
		t.Errorf("reading[2] = %s %s, want 1002 KG", got.readings[2].Weight, got.readings[2].Unit)
	}

	last, ok := m.LastReading()
	if !ok || last.Weight.String() != "1003" {
		t.Errorf("LastReading = %v/%v, want 1003", last, ok)
	}
}

func TestManager_PartialLineCarriesOver(t *testing.T) {
	var got eventLog
	m, src, _ := testManager(t, instantConfig(), got.events())
	defer m.Close()

	src.handler([]byte("12"))
	if len(got.raw) != 0 {
		t.Fatalf("no delimiter yet, got lines %q", got.raw)
	}
	src.handler([]byte("34 kg\r\n"))
	if len(got.raw) != 1 || got.raw[0] != "1234 kg" {
		t.Fatalf("raw = %q, want [\"1234 kg\"]", got.raw)
	}
}

func TestManager_StabilityViaDetector(t *testing.T) {
	var got eventLog
	m, src, _ := testManager(t, instantConfig(), got.events())
	defer m.Close()

	for i := 0; i < 9; i++ {
		src.handler([]byte("2500 kg\r\n"))
	}
	if m.Stable() {
		t.Fatal("stable before the window filled")
	}
	src.handler([]byte("2500 kg\r\n"))
	if !m.Stable() {
		t.Fatal("not stable after ten settled samples")
	}

	// Stability is announced on every line, not only on changes.
	if len(got.stability) != 10 {
		t.Errorf("got %d stability events, want 10", len(got.stability))
	}

	// A garbage line forces instability but keeps the last reading.
	src.handler([]byte("ERR\r\n"))
	if m.Stable() {
		t.Error("stable after an unreadable line")
	}
	if _, ok := m.LastReading(); !ok {
		t.Error("unreadable line should not clear the last reading")
	}
	if len(got.readings) != 10 {
		t.Errorf("got %d readings, want 10", len(got.readings))
	}
}

func TestManager_StabilityDisabled(t *testing.T) {
	cfg := instantConfig()
	cfg.StabilityEnabled = false
	var got eventLog
	m, src, _ := testManager(t, cfg, got.events())
	defer m.Close()

	src.handler([]byte("100 kg\r\n"))
	if !m.Stable() {
		t.Error("with stability disabled every reading counts as stable")
	}
}

func TestManager_StabilityPattern(t *testing.T) {
	cfg := instantConfig()
	cfg.StabilityPattern = `^ST,`
	var got eventLog
	m, src, _ := testManager(t, cfg, got.events())
	defer m.Close()

	src.handler([]byte("ST,1000 kg\r\n"))
	if !m.Stable() {
		t.Error("line matching the stability pattern should be stable")
	}
	src.handler([]byte("US,1000 kg\r\n"))
	if m.Stable() {
		t.Error("line missing the stability pattern should be unstable")
	}
}

func TestManager_ZeroIsEdgeTriggered(t *testing.T) {
	var got eventLog
	m, src, _ := testManager(t, instantConfig(), got.events())
	defer m.Close()

	src.handler([]byte("0.0 kg\r\n0.05 kg\r\n0.0 kg\r\n"))
	if !m.AtZero() {
		t.Fatal("expected zero state")
	}
	if len(got.zero) != 1 || !got.zero[0] {
		t.Fatalf("zero events = %v, want one true transition", got.zero)
	}

	src.handler([]byte("1500 kg\r\n"))
	if m.AtZero() {
		t.Fatal("expected non-zero state")
	}
	if len(got.zero) != 2 || got.zero[1] {
		t.Fatalf("zero events = %v, want a second false transition", got.zero)
	}
}

func TestManager_ZeroString(t *testing.T) {
	cfg := instantConfig()
	cfg.UseZeroString = true
	cfg.ZeroString = "ZERO"
	var got eventLog
	m, src, _ := testManager(t, cfg, got.events())
	defer m.Close()

	src.handler([]byte("ZERO 0.0 kg\r\n"))
	if !m.AtZero() {
		t.Error("line containing the zero string should set zero")
	}
	// In string mode the numeric value is ignored for zero tracking.
	src.handler([]byte("ZERO 500 kg\r\n"))
	if !m.AtZero() {
		t.Error("zero string mode should not consult the numeric value")
	}
	src.handler([]byte("500 kg\r\n"))
	if m.AtZero() {
		t.Error("line without the zero string should clear zero")
	}
}

func TestManager_SimulationFallback(t *testing.T) {
	m, err := NewManager(instantConfig(), Events{}, quietLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.hardware = func(Config, *log.Logger) LineSource { return failingSource{} }

	if err := m.Open(); err != nil {
		t.Fatalf("Open should fall back to simulation, got %v", err)
	}
	defer m.Close()

	if !m.Simulated() {
		t.Error("expected the simulation source after a hardware failure")
	}
}

func TestManager_ConfigureSwapsAtomically(t *testing.T) {
	var got eventLog
	m, src, _ := testManager(t, instantConfig(), got.events())
	defer m.Close()

	src.handler([]byte("1000 kg\r\n"))
	if _, ok := m.LastReading(); !ok {
		t.Fatal("expected a reading before reconfiguration")
	}

	// An invalid snapshot leaves the link untouched.
	bad := instantConfig()
	bad.WeightPattern = "("
	if err := m.Configure(bad); err == nil {
		t.Fatal("expected an error for a broken pattern")
	}
	if m.Config().WeightPattern == "(" {
		t.Error("failed Configure must not install the new snapshot")
	}
	if _, ok := m.LastReading(); !ok {
		t.Error("failed Configure must not clear link state")
	}

	// A valid snapshot resets reading and detector state.
	next := instantConfig()
	next.BaudRate = 19200
	if err := m.Configure(next); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if !src.stopped {
		t.Error("old source should be stopped on reconfiguration")
	}
	if m.Config().BaudRate != 19200 {
		t.Errorf("BaudRate = %d, want 19200", m.Config().BaudRate)
	}
	if _, ok := m.LastReading(); ok {
		t.Error("reading state should not survive reconfiguration")
	}
}

func TestManager_ConfirmZero(t *testing.T) {
	cfg := instantConfig()
	cfg.RegulatoryZeroTolerance = decimal.RequireFromString("0.05")
	var got eventLog
	m, src, _ := testManager(t, cfg, got.events())
	defer m.Close()

	if err := m.ConfirmZero(); !errors.Is(err, ErrNoReading) {
		t.Errorf("fresh link: err = %v, want ErrNoReading", err)
	}

	src.handler([]byte("0.01 kg\r\n"))
	if err := m.ConfirmZero(); !errors.Is(err, ErrNotStable) {
		t.Errorf("single sample: err = %v, want ErrNotStable", err)
	}

	for i := 0; i < 9; i++ {
		src.handler([]byte("0.01 kg\r\n"))
	}
	if err := m.ConfirmZero(); err != nil {
		t.Errorf("stable at zero: err = %v, want nil", err)
	}

	for i := 0; i < 10; i++ {
		src.handler([]byte("500 kg\r\n"))
	}
	if err := m.ConfirmZero(); !errors.Is(err, ErrNotAtZero) {
		t.Errorf("stable off zero: err = %v, want ErrNotAtZero", err)
	}
}

func TestManager_ConfirmZeroBypass(t *testing.T) {
	cfg := instantConfig()
	cfg.BypassZero = true
	m, _, _ := testManager(t, cfg, Events{})
	defer m.Close()

	if err := m.ConfirmZero(); err != nil {
		t.Errorf("bypass: err = %v, want nil", err)
	}
}

func TestManager_CloseDropsLateChunks(t *testing.T) {
	var got eventLog
	m, src, _ := testManager(t, instantConfig(), got.events())

	src.handler([]byte("1000 kg\r\n"))
	m.Close()
	src.handler([]byte("2000 kg\r\n"))

	if len(got.raw) != 1 {
		t.Errorf("raw lines after close = %q, want only the pre-close line", got.raw)
	}
	if !src.stopped {
		t.Error("Close should stop the source")
	}
}
