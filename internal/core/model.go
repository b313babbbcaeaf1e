package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocketStatus string

const (
	// DocketStatusUnset is the implicit state of a docket that has no row yet.
	DocketStatusUnset     DocketStatus = ""
	DocketStatusOpen      DocketStatus = "OPEN"
	DocketStatusClosed    DocketStatus = "CLOSED"
	DocketStatusCancelled DocketStatus = "CANCELLED"
)

type TransactionType string

const (
	GrossAndTare TransactionType = "GROSS_AND_TARE"
	StoredTare   TransactionType = "STORED_TARE"
	SingleWeight TransactionType = "SINGLE_WEIGHT"
)

// WeighingMode selects how a docket's weight fields are captured and closed.
type WeighingMode string

const (
	ModeTwoWeights   WeighingMode = "TWO_WEIGHS"
	ModeEntryAndTare WeighingMode = "ENTRY_AND_TARE"
	ModeTareAndExit  WeighingMode = "TARE_AND_EXIT"
	ModeSingleWeight WeighingMode = "SINGLE_WEIGHT"
)

// TransactionType returns the docket transaction type a mode closes under.
func (m WeighingMode) TransactionType() TransactionType {
	switch m {
	case ModeEntryAndTare, ModeTareAndExit:
		return StoredTare
	case ModeSingleWeight:
		return SingleWeight
	default:
		return GrossAndTare
	}
}

// WeightReading is one successfully parsed indicator line. Immutable; a new
// value is produced per parse.
type WeightReading struct {
	Weight decimal.Decimal `json:"weight"`
	Unit   string          `json:"unit"`
	At     time.Time       `json:"at"`
}

type Vehicle struct {
	ID                  int             `json:"id"`
	Rego                string          `json:"rego"`
	TareWeight          decimal.Decimal `json:"tare_weight"`
	MaxWeight           decimal.Decimal `json:"max_weight"`
	IsActive            bool            `json:"is_active"`
	IsBlocked           bool            `json:"is_blocked"`
	RestrictedMaterials []string        `json:"restricted_materials,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

type Site struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type Item struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	IsHazardous bool   `json:"is_hazardous"`
	IsActive    bool   `json:"is_active"`
}

type Customer struct {
	ID                  int      `json:"id"`
	Code                string   `json:"code"`
	Name                string   `json:"name"`
	RestrictedMaterials []string `json:"restricted_materials,omitempty"`
	IsActive            bool     `json:"is_active"`
}

type Transport struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type Driver struct {
	ID         int    `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	HazmatCert bool   `json:"hazmat_cert"`
	IsActive   bool   `json:"is_active"`
}

// Docket is one weighing transaction. Only the docket state machine mutates
// status and the weight fields; everything else is captured at creation.
type Docket struct {
	ID              int             `json:"id"`
	Reference       string          `json:"reference"`
	VehicleID       int             `json:"vehicle_id"`
	SourceSiteID    *int            `json:"source_site_id,omitempty"`
	DestSiteID      *int            `json:"dest_site_id,omitempty"`
	ItemID          *int            `json:"item_id,omitempty"`
	CustomerID      *int            `json:"customer_id,omitempty"`
	TransportID     *int            `json:"transport_id,omitempty"`
	DriverID        *int            `json:"driver_id,omitempty"`
	EntranceWeight  decimal.Decimal `json:"entrance_weight"`
	ExitWeight      decimal.Decimal `json:"exit_weight"`
	NetWeight       decimal.Decimal `json:"net_weight"`
	Unit            string          `json:"unit"`
	Remarks         string          `json:"remarks,omitempty"`
	Status          DocketStatus    `json:"status"`
	TransactionType TransactionType `json:"transaction_type"`
	Mode            WeighingMode    `json:"mode"`
	CreatedAt       time.Time       `json:"created_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}
