package core_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

func issueCodes(issues []core.ValidationIssue) map[string]core.Severity {
	out := make(map[string]core.Severity, len(issues))
	for _, i := range issues {
		out[i.Code] = i.Severity
	}
	return out
}

func okVehicle() *core.Vehicle {
	return &core.Vehicle{
		ID:        1,
		Rego:      "TRK001",
		MaxWeight: decimal.RequireFromString("42000"),
		IsActive:  true,
	}
}

func TestValidateWeighing_Clean(t *testing.T) {
	now := time.Now()
	issues := core.ValidateWeighing(core.WeighingFacts{
		Vehicle:   okVehicle(),
		Live:      decimal.RequireFromString("12500"),
		Timestamp: now,
	}, core.ValidationLimits{}, now)
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidateWeighing_Timestamps(t *testing.T) {
	now := time.Now()

	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100),
		Timestamp: now.Add(time.Minute),
	}, core.ValidationLimits{}, now))
	if got["TS_FUTURE"] != core.SeverityError {
		t.Errorf("future timestamp: got %v, want TS_FUTURE error", got)
	}

	got = issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100),
		Timestamp: now.Add(-25 * time.Hour),
	}, core.ValidationLimits{}, now))
	if got["TS_STALE"] != core.SeverityError {
		t.Errorf("stale timestamp: got %v, want TS_STALE error", got)
	}
}

func TestValidateWeighing_WeightLimits(t *testing.T) {
	now := time.Now()
	limits := core.ValidationLimits{
		MinWeight: decimal.NewFromInt(100),
		MaxWeight: decimal.NewFromInt(60000),
		MaxTare:   decimal.NewFromInt(20000),
	}

	tests := []struct {
		name     string
		live     string
		tare     string
		hasTare  bool
		wantCode string
	}{
		{name: "below minimum", live: "50", wantCode: "WEIGHT_BELOW_MIN"},
		{name: "above maximum", live: "60001", wantCode: "WEIGHT_ABOVE_MAX"},
		{name: "negative tare", live: "500", tare: "-1", hasTare: true, wantCode: "TARE_NEGATIVE"},
		{name: "tare above maximum", live: "500", tare: "20001", hasTare: true, wantCode: "TARE_ABOVE_MAX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := core.WeighingFacts{
				Vehicle:   okVehicle(),
				Live:      decimal.RequireFromString(tt.live),
				HasTare:   tt.hasTare,
				Timestamp: now,
			}
			if tt.tare != "" {
				f.Tare = decimal.RequireFromString(tt.tare)
			}
			got := issueCodes(core.ValidateWeighing(f, limits, now))
			if _, ok := got[tt.wantCode]; !ok {
				t.Errorf("got %v, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestValidateWeighing_VehicleRules(t *testing.T) {
	now := time.Now()

	blocked := okVehicle()
	blocked.IsBlocked = true
	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: blocked, Live: decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if got["VEHICLE_BLOCKED"] != core.SeverityCritical {
		t.Errorf("blocked vehicle: got %v, want VEHICLE_BLOCKED critical", got)
	}

	inactive := okVehicle()
	inactive.IsActive = false
	got = issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: inactive, Live: decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if got["VEHICLE_INACTIVE"] != core.SeverityError {
		t.Errorf("inactive vehicle: got %v, want VEHICLE_INACTIVE error", got)
	}

	got = issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(50000), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if got["VEHICLE_OVERLOADED"] != core.SeverityError {
		t.Errorf("overload: got %v, want VEHICLE_OVERLOADED error", got)
	}

	restricted := okVehicle()
	restricted.RestrictedMaterials = []string{"FUEL"}
	got = issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: restricted, Item: &core.Item{Code: "FUEL"},
		Live: decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if _, ok := got["VEHICLE_MATERIAL_RESTRICTED"]; !ok {
		t.Errorf("restricted material: got %v, want VEHICLE_MATERIAL_RESTRICTED", got)
	}
}

func TestValidateWeighing_RequiredReferences(t *testing.T) {
	now := time.Now()
	limits := core.ValidationLimits{RequireItem: true, RequireCustomer: true, RequireDriver: true}

	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100), Timestamp: now,
	}, limits, now))
	for _, code := range []string{"ITEM_REQUIRED", "CUSTOMER_REQUIRED", "DRIVER_REQUIRED"} {
		if got[code] != core.SeverityError {
			t.Errorf("missing %s: got %v", code, got)
		}
	}
}

func TestValidateWeighing_IdenticalSites(t *testing.T) {
	now := time.Now()
	site := 3
	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), SourceSiteID: &site, DestSiteID: &site,
		Live: decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if _, ok := got["SITES_IDENTICAL"]; !ok {
		t.Errorf("identical sites: got %v, want SITES_IDENTICAL", got)
	}
}

func TestValidateWeighing_Hazmat(t *testing.T) {
	now := time.Now()
	fuel := &core.Item{Code: "FUEL", IsHazardous: true}

	// No driver on record is advisory only.
	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Item: fuel,
		Live: decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if got["HAZMAT_DRIVER_UNKNOWN"] != core.SeverityWarning {
		t.Errorf("no driver: got %v, want HAZMAT_DRIVER_UNKNOWN warning", got)
	}

	// An uncertified driver blocks the save.
	got = issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Item: fuel,
		Driver: &core.Driver{Code: "D002", HazmatCert: false},
		Live:   decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if got["HAZMAT_CERT_MISSING"] != core.SeverityError {
		t.Errorf("uncertified driver: got %v, want HAZMAT_CERT_MISSING error", got)
	}

	// A certified driver is clean.
	issues := core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Item: fuel,
		Driver: &core.Driver{Code: "D001", HazmatCert: true},
		Live:   decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now)
	if core.HasBlocking(issues) {
		t.Errorf("certified driver should not block: %v", issues)
	}
}

func TestValidateWeighing_CustomerRestrictedMaterial(t *testing.T) {
	now := time.Now()
	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle:  okVehicle(),
		Item:     &core.Item{Code: "FUEL"},
		Customer: &core.Customer{Code: "CIVIC", RestrictedMaterials: []string{"FUEL"}},
		Live:     decimal.NewFromInt(100), Timestamp: now,
	}, core.ValidationLimits{}, now))
	if _, ok := got["CUSTOMER_MATERIAL_RESTRICTED"]; !ok {
		t.Errorf("got %v, want CUSTOMER_MATERIAL_RESTRICTED", got)
	}
}

func TestValidateWeighing_BusinessHours(t *testing.T) {
	limits := core.ValidationLimits{BusinessHoursStart: 6, BusinessHoursEnd: 18}
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	inside := day.Add(10 * time.Hour)
	issues := core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100), Timestamp: inside,
	}, limits, inside)
	if len(issues) != 0 {
		t.Errorf("10:00 inside 06-18: got %v", issues)
	}

	outside := day.Add(22 * time.Hour)
	got := issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100), Timestamp: outside,
	}, limits, outside))
	if got["OUTSIDE_BUSINESS_HOURS"] != core.SeverityWarning {
		t.Errorf("22:00 outside 06-18: got %v, want warning", got)
	}

	// A window wrapping midnight: 22-06.
	wrap := core.ValidationLimits{BusinessHoursStart: 22, BusinessHoursEnd: 6}
	night := day.Add(23 * time.Hour)
	issues = core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100), Timestamp: night,
	}, wrap, night)
	if len(issues) != 0 {
		t.Errorf("23:00 inside 22-06 wrap: got %v", issues)
	}
	noon := day.Add(12 * time.Hour)
	got = issueCodes(core.ValidateWeighing(core.WeighingFacts{
		Vehicle: okVehicle(), Live: decimal.NewFromInt(100), Timestamp: noon,
	}, wrap, noon))
	if _, ok := got["OUTSIDE_BUSINESS_HOURS"]; !ok {
		t.Errorf("12:00 outside 22-06 wrap: got %v", got)
	}
}

func TestHasBlocking(t *testing.T) {
	warn := core.ValidationIssue{Severity: core.SeverityWarning}
	errIssue := core.ValidationIssue{Severity: core.SeverityError}
	crit := core.ValidationIssue{Severity: core.SeverityCritical}

	if core.HasBlocking([]core.ValidationIssue{warn}) {
		t.Error("a lone warning should not block")
	}
	if !core.HasBlocking([]core.ValidationIssue{warn, errIssue}) {
		t.Error("an error should block")
	}
	if !core.HasBlocking([]core.ValidationIssue{crit}) {
		t.Error("a critical should block")
	}
	if core.HasBlocking(nil) {
		t.Error("no issues should not block")
	}
}

func TestLimitsFromSettings(t *testing.T) {
	limits := core.LimitsFromSettings(map[string]string{
		"MinWeight":          "100",
		"MaxWeight":          "60000",
		"MaxTare":            "garbage",
		"BusinessHoursStart": "6",
		"BusinessHoursEnd":   "25",
		"RequireItem":        "true",
		"RequireDriver":      "not-a-bool",
	})
	if limits.MinWeight.String() != "100" || limits.MaxWeight.String() != "60000" {
		t.Errorf("weights = %s/%s, want 100/60000", limits.MinWeight, limits.MaxWeight)
	}
	if limits.MaxTare.Sign() != 0 {
		t.Errorf("malformed MaxTare should stay zero, got %s", limits.MaxTare)
	}
	if limits.BusinessHoursStart != 6 {
		t.Errorf("BusinessHoursStart = %d, want 6", limits.BusinessHoursStart)
	}
	if limits.BusinessHoursEnd != 0 {
		t.Errorf("out-of-range BusinessHoursEnd should stay zero, got %d", limits.BusinessHoursEnd)
	}
	if !limits.RequireItem {
		t.Error("RequireItem should be true")
	}
	if limits.RequireDriver {
		t.Error("malformed RequireDriver should stay false")
	}
}
