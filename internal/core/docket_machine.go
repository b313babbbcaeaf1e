package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNegativeNet is returned when a stored-tare closure would produce a
// negative net weight (gross below tare). The docket is left untouched;
// the result is never clamped.
var ErrNegativeNet = errors.New("net weight would be negative")

// TransitionError reports an attempted illegal docket status transition.
type TransitionError struct {
	DocketID int
	From, To DocketStatus
}

func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "UNSET"
	}
	return fmt.Sprintf("docket %d: illegal transition %s -> %s", e.DocketID, from, e.To)
}

// legalTransitions is the complete transition table. UNSET -> CLOSED covers
// single-leg modes where both weights are captured in one operator action.
// CLOSED and CANCELLED are terminal.
var legalTransitions = map[DocketStatus][]DocketStatus{
	DocketStatusUnset: {DocketStatusOpen, DocketStatusClosed},
	DocketStatusOpen:  {DocketStatusClosed, DocketStatusCancelled},
}

// CanTransition reports whether from -> to appears in the transition table.
func CanTransition(from, to DocketStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (d *Docket) transition(to DocketStatus) error {
	if !CanTransition(d.Status, to) {
		return &TransitionError{DocketID: d.ID, From: d.Status, To: to}
	}
	d.Status = to
	return nil
}

// OpenFirstWeigh records leg one of a two-weight docket: the live weight
// becomes the entrance weight and the docket opens awaiting its exit leg.
func (d *Docket) OpenFirstWeigh(live decimal.Decimal, now time.Time) error {
	if err := d.transition(DocketStatusOpen); err != nil {
		return err
	}
	d.EntranceWeight = live
	d.ExitWeight = decimal.Zero
	d.NetWeight = decimal.Zero
	d.TransactionType = GrossAndTare
	d.Mode = ModeTwoWeights
	return nil
}

// CloseSecondWeigh records leg two of a two-weight docket. The entrance
// weight is untouched; net is the absolute difference of the two legs.
func (d *Docket) CloseSecondWeigh(live decimal.Decimal, now time.Time) error {
	if err := d.transition(DocketStatusClosed); err != nil {
		return err
	}
	d.ExitWeight = live
	d.NetWeight = d.EntranceWeight.Sub(live).Abs()
	d.ClosedAt = &now
	return nil
}

// CloseWithTare closes a single-leg stored-tare docket in one action.
// For EntryAndTare the live gross enters first and the tare exits; for
// TareAndExit the roles are reversed. Net is gross minus tare and a
// negative result rejects the closure outright.
func (d *Docket) CloseWithTare(mode WeighingMode, gross, tare decimal.Decimal, now time.Time) error {
	if mode != ModeEntryAndTare && mode != ModeTareAndExit {
		return fmt.Errorf("mode %s does not close with a stored tare", mode)
	}
	net := gross.Sub(tare)
	if net.Sign() < 0 {
		return fmt.Errorf("gross %s below tare %s: %w", gross, tare, ErrNegativeNet)
	}
	if err := d.transition(DocketStatusClosed); err != nil {
		return err
	}
	if mode == ModeEntryAndTare {
		d.EntranceWeight = gross
		d.ExitWeight = tare
	} else {
		d.EntranceWeight = tare
		d.ExitWeight = gross
	}
	d.NetWeight = net
	d.TransactionType = StoredTare
	d.Mode = mode
	d.ClosedAt = &now
	return nil
}

// CloseSingleWeight closes a one-shot weighing: net equals the live weight.
func (d *Docket) CloseSingleWeight(live decimal.Decimal, now time.Time) error {
	if err := d.transition(DocketStatusClosed); err != nil {
		return err
	}
	d.EntranceWeight = live
	d.ExitWeight = decimal.Zero
	d.NetWeight = live
	d.TransactionType = SingleWeight
	d.Mode = ModeSingleWeight
	d.ClosedAt = &now
	return nil
}

// Cancel voids an in-progress docket. Only OPEN dockets can be cancelled.
func (d *Docket) Cancel(now time.Time) error {
	if err := d.transition(DocketStatusCancelled); err != nil {
		return err
	}
	d.ClosedAt = &now
	return nil
}
