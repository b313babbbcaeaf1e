package core

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ValidationIssue is one business-rule finding, addressed to the operator
// with the offending field, a human-readable message and a stable code.
type ValidationIssue struct {
	Field    string   `json:"field"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Blocking reports whether this issue prevents the docket from being saved.
// Warnings are advisory only.
func (i ValidationIssue) Blocking() bool {
	return i.Severity == SeverityError || i.Severity == SeverityCritical
}

// HasBlocking reports whether any issue in the list blocks the save.
func HasBlocking(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Blocking() {
			return true
		}
	}
	return false
}

// ValidationLimits carries the station-configured bounds the rules check
// against. Zero-valued bounds disable the corresponding check.
type ValidationLimits struct {
	MinWeight          decimal.Decimal
	MaxWeight          decimal.Decimal
	MaxTare            decimal.Decimal
	BusinessHoursStart int // hour of day, inclusive
	BusinessHoursEnd   int // hour of day, exclusive; start==end disables
	RequireItem        bool
	RequireCustomer    bool
	RequireDriver      bool
}

// WeighingFacts is everything a single weighing action has resolved by the
// time validation runs: the live weight, the optional tare, and the looked-up
// master data the cross-field rules need.
type WeighingFacts struct {
	Vehicle      *Vehicle
	Item         *Item
	Customer     *Customer
	Driver       *Driver
	SourceSiteID *int
	DestSiteID   *int
	Live         decimal.Decimal
	Tare         decimal.Decimal
	HasTare      bool
	Timestamp    time.Time
}

// maxWeighingAge bounds how stale a weighing timestamp may be.
const maxWeighingAge = 24 * time.Hour

// ValidateWeighing runs every business rule over one weighing action and
// returns the findings. An empty result means a clean save.
func ValidateWeighing(f WeighingFacts, limits ValidationLimits, now time.Time) []ValidationIssue {
	var issues []ValidationIssue
	add := func(field, code, msg string, sev Severity) {
		issues = append(issues, ValidationIssue{Field: field, Code: code, Message: msg, Severity: sev})
	}

	if f.Timestamp.After(now) {
		add("timestamp", "TS_FUTURE", "weighing timestamp is in the future", SeverityError)
	} else if now.Sub(f.Timestamp) > maxWeighingAge {
		add("timestamp", "TS_STALE", "weighing timestamp is more than 24 hours old", SeverityError)
	}

	if limits.MinWeight.Sign() > 0 && f.Live.LessThan(limits.MinWeight) {
		add("weight", "WEIGHT_BELOW_MIN",
			fmt.Sprintf("weight %s is below the configured minimum %s", f.Live, limits.MinWeight), SeverityError)
	}
	if limits.MaxWeight.Sign() > 0 && f.Live.GreaterThan(limits.MaxWeight) {
		add("weight", "WEIGHT_ABOVE_MAX",
			fmt.Sprintf("weight %s exceeds the configured maximum %s", f.Live, limits.MaxWeight), SeverityError)
	}
	if f.HasTare {
		if f.Tare.Sign() < 0 {
			add("tare", "TARE_NEGATIVE", "tare weight cannot be negative", SeverityError)
		} else if limits.MaxTare.Sign() > 0 && f.Tare.GreaterThan(limits.MaxTare) {
			add("tare", "TARE_ABOVE_MAX",
				fmt.Sprintf("tare %s exceeds the configured maximum %s", f.Tare, limits.MaxTare), SeverityError)
		}
	}

	if v := f.Vehicle; v != nil {
		if v.IsBlocked {
			add("vehicle", "VEHICLE_BLOCKED",
				fmt.Sprintf("vehicle %s is blocked from weighing", v.Rego), SeverityCritical)
		}
		if !v.IsActive {
			add("vehicle", "VEHICLE_INACTIVE",
				fmt.Sprintf("vehicle %s is marked inactive", v.Rego), SeverityError)
		}
		if v.MaxWeight.Sign() > 0 && f.Live.GreaterThan(v.MaxWeight) {
			add("weight", "VEHICLE_OVERLOADED",
				fmt.Sprintf("weight %s exceeds vehicle capacity %s", f.Live, v.MaxWeight), SeverityError)
		}
		if f.Item != nil && containsMaterial(v.RestrictedMaterials, f.Item.Code) {
			add("item", "VEHICLE_MATERIAL_RESTRICTED",
				fmt.Sprintf("vehicle %s may not carry material %s", v.Rego, f.Item.Code), SeverityError)
		}
	}

	if limits.RequireItem && f.Item == nil {
		add("item", "ITEM_REQUIRED", "an item must be selected", SeverityError)
	}
	if limits.RequireCustomer && f.Customer == nil {
		add("customer", "CUSTOMER_REQUIRED", "a customer must be selected", SeverityError)
	}
	if limits.RequireDriver && f.Driver == nil {
		add("driver", "DRIVER_REQUIRED", "a driver must be selected", SeverityError)
	}

	if f.SourceSiteID != nil && f.DestSiteID != nil && *f.SourceSiteID == *f.DestSiteID {
		add("destination", "SITES_IDENTICAL", "source and destination sites must differ", SeverityError)
	}

	if f.Item != nil && f.Item.IsHazardous {
		if f.Driver == nil {
			add("driver", "HAZMAT_DRIVER_UNKNOWN",
				fmt.Sprintf("hazardous material %s with no driver on record", f.Item.Code), SeverityWarning)
		} else if !f.Driver.HazmatCert {
			add("driver", "HAZMAT_CERT_MISSING",
				fmt.Sprintf("driver %s is not certified for hazardous material %s", f.Driver.Code, f.Item.Code), SeverityError)
		}
	}

	if f.Customer != nil && f.Item != nil && containsMaterial(f.Customer.RestrictedMaterials, f.Item.Code) {
		add("item", "CUSTOMER_MATERIAL_RESTRICTED",
			fmt.Sprintf("customer %s does not accept material %s", f.Customer.Code, f.Item.Code), SeverityError)
	}

	if limits.BusinessHoursStart != limits.BusinessHoursEnd {
		h := f.Timestamp.Hour()
		inside := false
		if limits.BusinessHoursStart < limits.BusinessHoursEnd {
			inside = h >= limits.BusinessHoursStart && h < limits.BusinessHoursEnd
		} else {
			// Window wraps midnight.
			inside = h >= limits.BusinessHoursStart || h < limits.BusinessHoursEnd
		}
		if !inside {
			add("timestamp", "OUTSIDE_BUSINESS_HOURS", "weighing recorded outside business hours", SeverityWarning)
		}
	}

	return issues
}

// LimitsFromSettings reads the validation bounds from the settings store.
// Missing or malformed values leave the corresponding check disabled.
func LimitsFromSettings(values map[string]string) ValidationLimits {
	var limits ValidationLimits
	if v, err := decimal.NewFromString(values["MinWeight"]); err == nil {
		limits.MinWeight = v
	}
	if v, err := decimal.NewFromString(values["MaxWeight"]); err == nil {
		limits.MaxWeight = v
	}
	if v, err := decimal.NewFromString(values["MaxTare"]); err == nil {
		limits.MaxTare = v
	}
	if v, err := strconv.Atoi(values["BusinessHoursStart"]); err == nil && v >= 0 && v < 24 {
		limits.BusinessHoursStart = v
	}
	if v, err := strconv.Atoi(values["BusinessHoursEnd"]); err == nil && v >= 0 && v < 24 {
		limits.BusinessHoursEnd = v
	}
	if v, err := strconv.ParseBool(values["RequireItem"]); err == nil {
		limits.RequireItem = v
	}
	if v, err := strconv.ParseBool(values["RequireCustomer"]); err == nil {
		limits.RequireCustomer = v
	}
	if v, err := strconv.ParseBool(values["RequireDriver"]); err == nil {
		limits.RequireDriver = v
	}
	return limits
}

func containsMaterial(materials []string, code string) bool {
	for _, m := range materials {
		if m == code {
			return true
		}
	}
	return false
}
