package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// Orchestrator coordinates one weighing action across the scale, the
// stores, and the print/export collaborators. All collaborators arrive once
// at construction.
type Orchestrator struct {
	vehicles VehicleStore
	dockets  DocketStore
	master   core.MasterDataService
	scale    Scale
	printer  Printer
	exporter Exporter
	limits   core.ValidationLimits
	logger   *log.Logger
	now      func() time.Time
}

var _ WeighingService = (*Orchestrator)(nil)

// NewOrchestrator builds the weighing service. printer and exporter may be
// nil when the station has no such device attached.
func NewOrchestrator(
	vehicles VehicleStore,
	dockets DocketStore,
	master core.MasterDataService,
	scale Scale,
	printer Printer,
	exporter Exporter,
	limits core.ValidationLimits,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		vehicles: vehicles,
		dockets:  dockets,
		master:   master,
		scale:    scale,
		printer:  printer,
		exporter: exporter,
		limits:   limits,
		logger:   logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) Weigh(ctx context.Context, req WeighRequest) (*WeighResult, error) {
	now := o.now()

	vehicle, err := o.resolveVehicle(ctx, req)
	if err != nil {
		return nil, err
	}

	reading, ok := o.scale.LastReading()
	if !ok {
		return nil, errors.New("no weight reading available from the scale")
	}
	live := reading.Weight

	// In-progress check. An open docket blocks every action until the
	// operator acknowledges it, however old it is; stuck dockets surface
	// as a persistent warning, they never expire on their own. The one
	// exception is a TwoWeights action within the continuation window,
	// which is the docket's own second leg.
	openDocket, err := o.dockets.FindOpenForVehicle(ctx, vehicle.ID, time.Time{})
	if err != nil {
		return nil, err
	}

	var issues []core.ValidationIssue
	if openDocket != nil {
		stale := openDocket.CreatedAt.Before(now.Add(-InProgressWindow))
		if req.Mode != core.ModeTwoWeights || stale {
			if !req.AcknowledgeInProgress {
				return nil, &InProgressError{Docket: openDocket}
			}
			issues = append(issues, core.ValidationIssue{
				Field:    "vehicle",
				Code:     "DOCKET_IN_PROGRESS",
				Message:  fmt.Sprintf("vehicle %s has open docket %d (opened %s) awaiting its second weigh", vehicle.Rego, openDocket.ID, openDocket.CreatedAt.Format("2006-01-02 15:04")),
				Severity: core.SeverityWarning,
			})
		}
	}

	refs, lookupIssues, err := o.resolveReferences(ctx, req)
	if err != nil {
		return nil, err
	}
	issues = append(issues, lookupIssues...)

	tare := vehicle.TareWeight
	if req.TareOverride != nil {
		tare = *req.TareOverride
	}

	facts := core.WeighingFacts{
		Vehicle:      vehicle,
		Item:         refs.item,
		Customer:     refs.customer,
		Driver:       refs.driver,
		SourceSiteID: refs.sourceSiteID,
		DestSiteID:   refs.destSiteID,
		Live:         live,
		Tare:         tare,
		HasTare:      req.Mode == core.ModeEntryAndTare || req.Mode == core.ModeTareAndExit,
		Timestamp:    reading.At,
	}
	issues = append(issues, core.ValidateWeighing(facts, o.limits, now)...)

	if !o.scale.Stable() {
		issues = append(issues, core.ValidationIssue{
			Field:    "weight",
			Code:     "WEIGHT_UNSTABLE",
			Message:  "scale reading has not stabilised",
			Severity: core.SeverityError,
		})
	}

	if core.HasBlocking(issues) {
		return nil, &ValidationError{Issues: issues}
	}

	docket, storeTare, err := o.applyTransition(req, vehicle, refs, openDocket, live, tare, now)
	if err != nil {
		return nil, err
	}
	docket.Unit = reading.Unit

	if err := o.dockets.SaveWeighing(ctx, docket, storeTare); err != nil {
		return nil, fmt.Errorf("save weighing: %w", err)
	}

	result := &WeighResult{Docket: docket, Warnings: issues}
	if docket.Status == core.DocketStatusClosed {
		o.handOff(ctx, docket, result)
	}
	return result, nil
}

// applyTransition builds or advances the docket for the requested mode.
// The returned storeTare, when non-nil, is written to the vehicle inside
// the same transaction as the docket.
func (o *Orchestrator) applyTransition(
	req WeighRequest,
	vehicle *core.Vehicle,
	refs resolvedRefs,
	openDocket *core.Docket,
	live, tare decimal.Decimal,
	now time.Time,
) (*core.Docket, *decimal.Decimal, error) {
	if req.Mode == core.ModeTwoWeights && openDocket != nil {
		if req.Remarks != "" {
			openDocket.Remarks = req.Remarks
		}
		if err := openDocket.CloseSecondWeigh(live, now); err != nil {
			return nil, nil, err
		}
		return openDocket, nil, nil
	}

	docket := &core.Docket{
		VehicleID:    vehicle.ID,
		SourceSiteID: refs.sourceSiteID,
		DestSiteID:   refs.destSiteID,
		ItemID:       refs.itemID(),
		CustomerID:   refs.customerID(),
		TransportID:  refs.transportID(),
		DriverID:     refs.driverID(),
		Remarks:      req.Remarks,
		Mode:         req.Mode,
	}

	switch req.Mode {
	case core.ModeTwoWeights:
		if err := docket.OpenFirstWeigh(live, now); err != nil {
			return nil, nil, err
		}
		return docket, nil, nil
	case core.ModeEntryAndTare, core.ModeTareAndExit:
		if err := docket.CloseWithTare(req.Mode, live, tare, now); err != nil {
			if errors.Is(err, core.ErrNegativeNet) {
				return nil, nil, &ValidationError{Issues: []core.ValidationIssue{{
					Field:    "tare",
					Code:     "NET_NEGATIVE",
					Message:  err.Error(),
					Severity: core.SeverityError,
				}}}
			}
			return nil, nil, err
		}
		return docket, req.TareOverride, nil
	case core.ModeSingleWeight:
		if err := docket.CloseSingleWeight(live, now); err != nil {
			return nil, nil, err
		}
		return docket, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown weighing mode %q", req.Mode)
	}
}

// handOff prints and exports a closed docket. The docket is already
// committed; failures here are reported, never rolled back.
func (o *Orchestrator) handOff(ctx context.Context, d *core.Docket, result *WeighResult) {
	if o.printer != nil {
		if err := o.printer.Print(ctx, *d); err != nil {
			o.logger.Printf("weighing: print failed for docket %d: %v", d.ID, err)
			result.PrintError = err.Error()
		}
	}
	if o.exporter != nil {
		if err := o.exporter.Export(ctx, *d); err != nil {
			o.logger.Printf("weighing: export failed for docket %d: %v", d.ID, err)
			result.ExportError = err.Error()
		}
	}
}

func (o *Orchestrator) CancelDocket(ctx context.Context, docketID int) (*core.Docket, error) {
	docket, err := o.dockets.GetByID(ctx, docketID)
	if err != nil {
		return nil, err
	}
	if err := docket.Cancel(o.now()); err != nil {
		return nil, err
	}
	if err := o.dockets.SaveWeighing(ctx, docket, nil); err != nil {
		return nil, fmt.Errorf("save cancellation: %w", err)
	}
	return docket, nil
}

func (o *Orchestrator) OpenDocket(ctx context.Context, rego string) (*core.Docket, error) {
	vehicle, err := o.vehicles.GetByRego(ctx, rego)
	if err != nil {
		if errors.Is(err, core.ErrVehicleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return o.dockets.FindOpenForVehicle(ctx, vehicle.ID, time.Time{})
}

// resolveVehicle looks the vehicle up by registration, creating it when the
// request carries operator-approved master data for a miss.
func (o *Orchestrator) resolveVehicle(ctx context.Context, req WeighRequest) (*core.Vehicle, error) {
	rego := core.CanonicalRego(req.Rego)
	if rego == "" {
		return nil, errors.New("vehicle registration is required")
	}

	vehicle, err := o.vehicles.GetByRego(ctx, rego)
	if err == nil {
		return vehicle, nil
	}
	if !errors.Is(err, core.ErrVehicleNotFound) {
		return nil, err
	}
	if req.CreateVehicle == nil {
		return nil, err
	}

	input := *req.CreateVehicle
	input.Rego = rego
	return o.vehicles.Create(ctx, input)
}

// resolvedRefs carries the looked-up docket references. Unknown codes are
// reported as blocking issues rather than silently dropped.
type resolvedRefs struct {
	sourceSiteID *int
	destSiteID   *int
	item         *core.Item
	customer     *core.Customer
	transport    *core.Transport
	driver       *core.Driver
}

func (r resolvedRefs) itemID() *int      { return itemIDOf(r.item) }
func (r resolvedRefs) customerID() *int  { return customerIDOf(r.customer) }
func (r resolvedRefs) transportID() *int { return transportIDOf(r.transport) }
func (r resolvedRefs) driverID() *int    { return driverIDOf(r.driver) }

func itemIDOf(i *core.Item) *int {
	if i == nil {
		return nil
	}
	return &i.ID
}

func customerIDOf(c *core.Customer) *int {
	if c == nil {
		return nil
	}
	return &c.ID
}

func transportIDOf(t *core.Transport) *int {
	if t == nil {
		return nil
	}
	return &t.ID
}

func driverIDOf(d *core.Driver) *int {
	if d == nil {
		return nil
	}
	return &d.ID
}

func (o *Orchestrator) resolveReferences(ctx context.Context, req WeighRequest) (resolvedRefs, []core.ValidationIssue, error) {
	var refs resolvedRefs
	var issues []core.ValidationIssue
	unknown := func(field, code string) {
		issues = append(issues, core.ValidationIssue{
			Field:    field,
			Code:     "UNKNOWN_" + code,
			Message:  fmt.Sprintf("no %s with that code exists", field),
			Severity: core.SeverityError,
		})
	}

	if req.SourceSiteCode != "" {
		site, err := o.master.GetSiteByCode(ctx, req.SourceSiteCode)
		if err != nil {
			return refs, nil, err
		}
		if site == nil {
			unknown("source site", "SOURCE_SITE")
		} else {
			refs.sourceSiteID = &site.ID
		}
	}
	if req.DestSiteCode != "" {
		site, err := o.master.GetSiteByCode(ctx, req.DestSiteCode)
		if err != nil {
			return refs, nil, err
		}
		if site == nil {
			unknown("destination site", "DEST_SITE")
		} else {
			refs.destSiteID = &site.ID
		}
	}
	if req.ItemCode != "" {
		item, err := o.master.GetItemByCode(ctx, req.ItemCode)
		if err != nil {
			return refs, nil, err
		}
		if item == nil {
			unknown("item", "ITEM")
		} else {
			refs.item = item
		}
	}
	if req.CustomerCode != "" {
		customer, err := o.master.GetCustomerByCode(ctx, req.CustomerCode)
		if err != nil {
			return refs, nil, err
		}
		if customer == nil {
			unknown("customer", "CUSTOMER")
		} else {
			refs.customer = customer
		}
	}
	if req.TransportCode != "" {
		transport, err := o.master.GetTransportByCode(ctx, req.TransportCode)
		if err != nil {
			return refs, nil, err
		}
		if transport == nil {
			unknown("transport", "TRANSPORT")
		} else {
			refs.transport = transport
		}
	}
	if req.DriverCode != "" {
		driver, err := o.master.GetDriverByCode(ctx, req.DriverCode)
		if err != nil {
			return refs, nil, err
		}
		if driver == nil {
			unknown("driver", "DRIVER")
		} else {
			refs.driver = driver
		}
	}

	return refs, issues, nil
}
