package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// Services bundles the backends the admin commands operate on.
type Services struct {
	Vehicles core.VehicleService
	Dockets  core.DocketService
	Settings core.SettingsService
}

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc Services, args []string) {
	switch args[0] {
	case "vehicles", "veh":
		vehicles, err := svc.Vehicles.GetAll(ctx)
		if err != nil {
			log.Fatalf("Failed to list vehicles: %v", err)
		}
		printVehicles(vehicles)

	case "tare":
		if len(args) < 3 {
			log.Fatal("Usage: weighctl tare <rego> <weight>")
		}
		tare, err := decimal.NewFromString(args[2])
		if err != nil {
			log.Fatalf("Invalid tare weight %q: %v", args[2], err)
		}
		vehicle, err := svc.Vehicles.GetByRego(ctx, args[1])
		if err != nil {
			log.Fatalf("Failed to look up vehicle: %v", err)
		}
		if err := svc.Vehicles.UpdateTare(ctx, vehicle.ID, tare); err != nil {
			log.Fatalf("Failed to update tare: %v", err)
		}
		fmt.Printf("Stored tare %s for %s.\n", tare.StringFixed(1), vehicle.Rego)

	case "docket", "doc":
		if len(args) < 2 {
			log.Fatal("Usage: weighctl docket <id>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid docket id %q", args[1])
		}
		docket, err := svc.Dockets.GetByID(ctx, id)
		if err != nil {
			log.Fatalf("Failed to load docket: %v", err)
		}
		printDocket(docket)

	case "dockets", "docs":
		if len(args) < 2 {
			log.Fatal("Usage: weighctl dockets <rego>")
		}
		vehicle, err := svc.Vehicles.GetByRego(ctx, args[1])
		if err != nil {
			log.Fatalf("Failed to look up vehicle: %v", err)
		}
		dockets, err := svc.Dockets.GetForVehicle(ctx, vehicle.ID, 20)
		if err != nil {
			log.Fatalf("Failed to list dockets: %v", err)
		}
		printDocketList(vehicle.Rego, dockets)

	case "cancel":
		if len(args) < 2 {
			log.Fatal("Usage: weighctl cancel <id>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid docket id %q", args[1])
		}
		docket, err := svc.Dockets.GetByID(ctx, id)
		if err != nil {
			log.Fatalf("Failed to load docket: %v", err)
		}
		if err := docket.Cancel(time.Now()); err != nil {
			var te *core.TransitionError
			if errors.As(err, &te) {
				log.Fatalf("Docket %d is %s and cannot be cancelled", id, docket.Status)
			}
			log.Fatalf("Failed to cancel: %v", err)
		}
		if err := svc.Dockets.SaveWeighing(ctx, docket, nil); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		fmt.Printf("Docket %d cancelled.\n", id)

	case "set":
		if len(args) < 3 {
			log.Fatal("Usage: weighctl set <key> <value>")
		}
		if err := svc.Settings.Set(ctx, args[1], args[2]); err != nil {
			log.Fatalf("Failed to store setting: %v", err)
		}
		fmt.Printf("%s = %s\n", args[1], args[2])

	case "settings":
		settings, err := svc.Settings.LoadAll(ctx)
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		printSettings(settings)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: vehicles, tare, docket, dockets, cancel, set, settings", args[0])
	}
}

func printVehicles(vehicles []core.Vehicle) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-58s\n", "VEHICLES")
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-10s %12s %12s  %s\n", "REGO", "TARE", "MAX", "FLAGS")
	fmt.Println(strings.Repeat("-", 62))
	for _, v := range vehicles {
		var flags []string
		if v.IsBlocked {
			flags = append(flags, "BLOCKED")
		}
		if !v.IsActive {
			flags = append(flags, "INACTIVE")
		}
		fmt.Printf("  %-10s %12s %12s  %s\n",
			v.Rego, v.TareWeight.StringFixed(1), v.MaxWeight.StringFixed(1),
			strings.Join(flags, ","))
	}
	fmt.Println(strings.Repeat("=", 62))
}

func printDocket(d *core.Docket) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  DOCKET %d  (%s)\n", d.ID, d.Reference)
	fmt.Println(strings.Repeat("-", 62))
	fmt.Printf("  Status    : %s\n", d.Status)
	fmt.Printf("  Mode      : %s\n", d.Mode)
	fmt.Printf("  Vehicle ID: %d\n", d.VehicleID)
	fmt.Printf("  Entrance  : %s %s\n", d.EntranceWeight.StringFixed(1), d.Unit)
	fmt.Printf("  Exit      : %s %s\n", d.ExitWeight.StringFixed(1), d.Unit)
	fmt.Printf("  Net       : %s %s\n", d.NetWeight.StringFixed(1), d.Unit)
	fmt.Printf("  Created   : %s\n", d.CreatedAt.Format(time.RFC3339))
	if d.ClosedAt != nil {
		fmt.Printf("  Closed    : %s\n", d.ClosedAt.Format(time.RFC3339))
	}
	if d.Remarks != "" {
		fmt.Printf("  Remarks   : %s\n", d.Remarks)
	}
	fmt.Println(strings.Repeat("=", 62))
}

func printDocketList(rego string, dockets []core.Docket) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  DOCKETS FOR %s\n", rego)
	fmt.Println(strings.Repeat("-", 62))
	fmt.Printf("  %-6s %-10s %12s %-6s %s\n", "ID", "STATUS", "NET", "UNIT", "CREATED")
	for _, d := range dockets {
		fmt.Printf("  %-6d %-10s %12s %-6s %s\n",
			d.ID, d.Status, d.NetWeight.StringFixed(1), d.Unit,
			d.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("=", 62))
}

func printSettings(settings map[string]string) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println()
	for _, k := range keys {
		fmt.Printf("  %-34s %s\n", k, settings[k])
	}
}
