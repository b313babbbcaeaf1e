package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// InProgressWindow bounds how old an open docket may be for a TwoWeights
// action to continue it silently as the second weigh. Older open dockets
// still block every action until acknowledged; they never expire on their
// own. A fixed business rule, not a setting.
const InProgressWindow = 24 * time.Hour

// WeighingService is the single interface a station front-end calls to
// commit weighing actions. Implementations contain no display logic.
type WeighingService interface {
	// Weigh runs one weighing action end to end: vehicle resolution,
	// in-progress check, validation, state transition, persistence, then
	// print/export hand-off. Blocking validation failures return
	// *ValidationError; an unacknowledged open docket returns
	// *InProgressError. Print/export failures are reported in the result,
	// not as errors.
	Weigh(ctx context.Context, req WeighRequest) (*WeighResult, error)

	// CancelDocket voids an OPEN docket. Terminal dockets are rejected
	// with *core.TransitionError.
	CancelDocket(ctx context.Context, docketID int) (*core.Docket, error)

	// OpenDocket returns the vehicle's open docket, however old, or nil.
	// Front-ends use it to offer continue/edit choices.
	OpenDocket(ctx context.Context, rego string) (*core.Docket, error)
}

// VehicleStore is the persistence surface the orchestrator needs for
// vehicles.
type VehicleStore interface {
	GetByRego(ctx context.Context, rego string) (*core.Vehicle, error)
	Create(ctx context.Context, input core.VehicleInput) (*core.Vehicle, error)
}

// DocketStore is the persistence surface for dockets. SaveWeighing is the
// atomicity boundary of a weighing action.
type DocketStore interface {
	SaveWeighing(ctx context.Context, d *core.Docket, storeTare *decimal.Decimal) error
	GetByID(ctx context.Context, id int) (*core.Docket, error)
	FindOpenForVehicle(ctx context.Context, vehicleID int, since time.Time) (*core.Docket, error)
}

// Scale is the live view of the weighbridge link the orchestrator reads at
// commit time. *weighbridge.Manager satisfies it.
type Scale interface {
	LastReading() (core.WeightReading, bool)
	Stable() bool
	ConfirmZero() error
}

// Printer renders and prints the docket receipt after a successful save.
type Printer interface {
	Print(ctx context.Context, d core.Docket) error
}

// Exporter hands a committed docket to any downstream export target.
type Exporter interface {
	Export(ctx context.Context, d core.Docket) error
}
