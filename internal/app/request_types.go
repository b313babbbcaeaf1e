package app

import (
	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// WeighRequest is the input for one weighing action, assembled by whatever
// front-end drives the station. Optional references are empty strings.
type WeighRequest struct {
	// Rego identifies the vehicle, typed or picked.
	Rego string
	Mode core.WeighingMode

	// TareOverride is an operator-entered tare for the stored-tare modes.
	// Nil means use the vehicle's recorded tare. A fresh override is also
	// written back to the vehicle as its new default.
	TareOverride *decimal.Decimal

	SourceSiteCode string
	DestSiteCode   string
	ItemCode       string
	CustomerCode   string
	TransportCode  string
	DriverCode     string
	Remarks        string

	// CreateVehicle, when non-nil, is the operator-approved master data
	// for a vehicle that did not exist under Rego. Nil means a miss
	// aborts the action instead.
	CreateVehicle *core.VehicleInput

	// AcknowledgeInProgress lets the action proceed despite an open docket
	// from the last 24 hours (the warning is still surfaced). Ignored for
	// TwoWeights, which continues the open docket instead.
	AcknowledgeInProgress bool
}
