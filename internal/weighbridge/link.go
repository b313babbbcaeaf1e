package weighbridge

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// maxBufferedBytes caps the framing buffer so an indicator that never sends
// a delimiter cannot grow it without bound. Oldest bytes are dropped.
const maxBufferedBytes = 4096

// Confirmed-zero failures. Each names exactly which of the three
// preconditions failed so the operator message can be specific.
var (
	ErrNoReading = errors.New("no weight reading received yet")
	ErrNotStable = errors.New("scale is not stable")
	ErrNotAtZero = errors.New("scale is not within the regulatory zero tolerance")
)

// Events carries the manager's outbound notifications. Handlers are invoked
// on the link's processing path while its lock is held: keep them fast and
// never call back into the Manager from one. Nil handlers are skipped.
//
// Stability fires on every processed line whether or not the value changed;
// Zero fires only on transitions.
type Events struct {
	RawLine   func(line string)
	Reading   func(r core.WeightReading)
	Stability func(stable bool)
	Zero      func(zero bool)
}

// Manager owns one logical connection to a weight indicator: lifecycle
// (open/close/reconfigure), byte framing, parsing, stability and zero
// tracking, and event fan-out. When the configured serial port cannot be
// opened it runs a simulation source through the identical processing path,
// so nothing downstream ever has to special-case missing hardware.
//
// One coarse mutex guards all mutable state. Indicator data rates are a few
// lines per second at most, so serialising configuration calls with line
// processing costs nothing and rules out torn reads between them.
type Manager struct {
	events Events
	logger *log.Logger

	// hardware builds the real line source; tests substitute a failing or
	// scripted implementation.
	hardware func(Config, *log.Logger) LineSource
	now      func() time.Time

	mu          sync.Mutex
	cfg         Config
	weightRe    *regexp.Regexp
	stabilityRe *regexp.Regexp
	detector    *core.StabilityDetector
	source      LineSource
	open        bool
	simulated   bool
	buf         []byte
	lastReading *core.WeightReading
	stable      bool
	zero        bool
}

// NewManager validates the initial configuration and builds a closed link.
func NewManager(cfg Config, events Events, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		events: events,
		logger: logger,
		hardware: func(cfg Config, logger *log.Logger) LineSource {
			return newSerialSource(cfg, logger)
		},
		now: time.Now,
	}
	if err := m.applyConfig(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// applyConfig compiles and swaps in a validated snapshot. Caller must hold
// the lock unless the manager is not yet shared.
func (m *Manager) applyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	weightRe, err := regexp.Compile(cfg.WeightPattern)
	if err != nil {
		return fmt.Errorf("invalid weight pattern: %w", err)
	}
	var stabilityRe *regexp.Regexp
	if cfg.StabilityPattern != "" {
		stabilityRe, err = regexp.Compile(cfg.StabilityPattern)
		if err != nil {
			return fmt.Errorf("invalid stability pattern: %w", err)
		}
	}

	m.cfg = cfg
	m.weightRe = weightRe
	m.stabilityRe = stabilityRe
	m.detector = core.NewStabilityDetector(decimal.Zero, cfg.StableTime)
	m.buf = nil
	m.lastReading = nil
	m.stable = false
	return nil
}

// Open starts the link. A hardware failure of any kind is logged and
// answered with the simulation source; Open itself does not fail for
// hardware reasons. Idempotent.
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked()
}

func (m *Manager) openLocked() error {
	if m.open {
		return nil
	}

	src := m.hardware(m.cfg, m.logger)
	simulated := false
	if err := src.Start(m.ingest); err != nil {
		m.logger.Printf("weighbridge: cannot open %s: %v; falling back to simulation", m.cfg.PortName, err)
		src = newSimSource(simInterval)
		if err := src.Start(m.ingest); err != nil {
			return fmt.Errorf("start simulation source: %w", err)
		}
		simulated = true
	}

	m.source = src
	m.open = true
	m.simulated = simulated
	return nil
}

// Close stops the source and detaches it. Safe to call while a read is in
// flight and safe to call repeatedly.
func (m *Manager) Close() {
	m.mu.Lock()
	src := m.source
	m.source = nil
	m.open = false
	m.mu.Unlock()

	// Stop outside the lock: the source's read goroutine may be blocked in
	// ingest waiting for it.
	if src != nil {
		src.Stop()
	}
}

// Configure validates the new snapshot, then swaps it in. If the link was
// open it is closed, rebuilt with the new configuration and reopened, so a
// caller either gets the new configuration live or an error with the old
// one untouched. Detector history and the framing buffer do not survive a
// reconfiguration.
func (m *Manager) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	wasOpen := m.open
	src := m.source
	m.source = nil
	m.open = false
	if err := m.applyConfig(cfg); err != nil {
		// Validate passed above; this cannot fire, but restore liveness
		// if it somehow does.
		m.open = wasOpen
		m.source = src
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	if wasOpen {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.openLocked()
	}
	return nil
}

// Simulated reports whether the link is currently fed by the simulation.
func (m *Manager) Simulated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open && m.simulated
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// RequireZeroConfirm reports whether the current configuration demands an
// operator zero confirmation before a weighing action.
func (m *Manager) RequireZeroConfirm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.RequireManualZeroConfirm
}

// LastReading returns the most recent parsed reading, if any.
func (m *Manager) LastReading() (core.WeightReading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastReading == nil {
		return core.WeightReading{}, false
	}
	return *m.lastReading, true
}

// Stable reports the most recent stability determination.
func (m *Manager) Stable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stable
}

// AtZero reports the current zero state.
func (m *Manager) AtZero() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zero
}

// ConfirmZero checks the scale against the regulatory zero tolerance, which
// is generally tighter than the routine tolerance driving the live zero
// indicator. It requires a known reading, current stability, and a weight
// inside the regulatory band; whichever is missing is reported. A
// configuration with BypassZero set skips the check entirely.
func (m *Manager) ConfirmZero() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.BypassZero {
		return nil
	}
	if m.lastReading == nil {
		return ErrNoReading
	}
	if !m.stable {
		return ErrNotStable
	}
	if !core.IsZero(m.lastReading.Weight, m.lastReading.Unit, m.cfg.RegulatoryZeroTolerance) {
		return ErrNotAtZero
	}
	return nil
}

// ingest is the single entry point for bytes from any source. It frames the
// buffer into lines on CR or LF (a CRLF pair is one delimiter), dispatches
// each trimmed non-blank line, and keeps any trailing partial line for the
// next chunk.
func (m *Manager) ingest(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		// Late delivery from a source being torn down.
		return
	}

	m.buf = append(m.buf, chunk...)
	if len(m.buf) > maxBufferedBytes {
		m.buf = m.buf[len(m.buf)-maxBufferedBytes:]
	}

	for {
		idx := bytes.IndexAny(m.buf, "\r\n")
		if idx < 0 {
			return
		}
		line := strings.TrimSpace(string(m.buf[:idx]))
		skip := idx + 1
		if m.buf[idx] == '\r' && skip < len(m.buf) && m.buf[skip] == '\n' {
			skip++
		}
		m.buf = m.buf[skip:]

		if line != "" {
			m.processLine(line)
		}
	}
}

// processLine runs one framed line through the full pipeline. Lock held.
func (m *Manager) processLine(line string) {
	if m.events.RawLine != nil {
		m.events.RawLine(line)
	}

	if m.cfg.UseZeroString && m.cfg.ZeroString != "" {
		m.setZero(strings.Contains(line, m.cfg.ZeroString))
	}

	reading := core.ParseWeightMatch(line, m.weightRe)
	if reading == nil {
		// No reading this cycle. Stability is forced off and still
		// announced; the zero state is left as it was.
		m.stable = false
		if m.events.Stability != nil {
			m.events.Stability(false)
		}
		return
	}

	reading.At = m.now()
	m.lastReading = reading
	if m.events.Reading != nil {
		m.events.Reading(*reading)
	}

	switch {
	case !m.cfg.StabilityEnabled:
		m.stable = true
	case m.stabilityRe != nil:
		m.stable = m.stabilityRe.MatchString(line)
	default:
		m.stable = m.detector.Accept(reading.Weight, reading.At)
	}
	if m.events.Stability != nil {
		m.events.Stability(m.stable)
	}

	if !m.cfg.UseZeroString {
		m.setZero(core.IsZero(reading.Weight, reading.Unit, m.cfg.ZeroTolerance))
	}
}

// setZero is edge-triggered: the event fires only when the state flips.
func (m *Manager) setZero(zero bool) {
	if zero == m.zero {
		return
	}
	m.zero = zero
	if m.events.Zero != nil {
		m.events.Zero(zero)
	}
}
