package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// stabilityWindowSize is the number of consecutive samples the detector
// needs before it will consider a signal stable at all.
const stabilityWindowSize = 10

var (
	defaultStabilityTolerance = decimal.RequireFromString("0.5")

	zeroToleranceKG = decimal.RequireFromString("0.1")
	zeroToleranceLB = decimal.RequireFromString("0.2")
	zeroToleranceT  = decimal.RequireFromString("0.0001")
)

// StabilityDetector decides whether a live weight signal has settled.
//
// The state is a bounded FIFO of the most recent samples plus the moment the
// window first came within tolerance. The signal counts as stable once the
// window has been full, within tolerance, and undisturbed for the configured
// dwell time. Any out-of-tolerance sample restarts the dwell clock.
//
// Not safe for concurrent use; the link manager serialises access under its
// own lock.
type StabilityDetector struct {
	tolerance  decimal.Decimal
	stableTime time.Duration
	window     []decimal.Decimal
	dwellStart time.Time
}

// NewStabilityDetector builds a detector. A non-positive tolerance selects
// the built-in default of 0.5 units.
func NewStabilityDetector(tolerance decimal.Decimal, stableTime time.Duration) *StabilityDetector {
	if tolerance.Sign() <= 0 {
		tolerance = defaultStabilityTolerance
	}
	return &StabilityDetector{
		tolerance:  tolerance,
		stableTime: stableTime,
		window:     make([]decimal.Decimal, 0, stabilityWindowSize),
	}
}

// Accept feeds one sample and reports whether the signal is stable as of now.
func (d *StabilityDetector) Accept(sample decimal.Decimal, now time.Time) bool {
	d.window = append(d.window, sample)
	if len(d.window) > stabilityWindowSize {
		d.window = d.window[1:]
	}

	// A short window means insufficient history, never stability.
	if len(d.window) < stabilityWindowSize {
		return false
	}

	min, max := d.window[0], d.window[0]
	for _, w := range d.window[1:] {
		if w.LessThan(min) {
			min = w
		}
		if w.GreaterThan(max) {
			max = w
		}
	}

	if max.Sub(min).GreaterThan(d.tolerance) {
		d.dwellStart = time.Time{}
		return false
	}

	if d.dwellStart.IsZero() {
		d.dwellStart = now
	}
	return now.Sub(d.dwellStart) >= d.stableTime
}

// Reset discards all history. Used when the link is reconfigured so samples
// taken under the old configuration cannot vouch for the new one.
func (d *StabilityDetector) Reset() {
	d.window = d.window[:0]
	d.dwellStart = time.Time{}
}

// ZeroToleranceFor resolves the zero band for a unit: the configured value
// when positive, otherwise a unit-dependent default. The defaults are
// conventional, not verified regulatory constants; installations should
// configure their own.
func ZeroToleranceFor(unit string, configured decimal.Decimal) decimal.Decimal {
	if configured.Sign() > 0 {
		return configured
	}
	switch strings.ToUpper(unit) {
	case "LB":
		return zeroToleranceLB
	case "T":
		return zeroToleranceT
	default:
		return zeroToleranceKG
	}
}

// IsZero reports whether a reading sits inside the zero band for its unit.
func IsZero(weight decimal.Decimal, unit string, configured decimal.Decimal) bool {
	return weight.Abs().LessThan(ZeroToleranceFor(unit, configured))
}
