package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrVehicleNotFound lets callers distinguish "no such rego" from a query
// failure, because the orchestrator offers creation on a miss.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleInput is the caller-supplied portion of a new vehicle record.
type VehicleInput struct {
	Rego                string
	TareWeight          decimal.Decimal
	MaxWeight           decimal.Decimal
	RestrictedMaterials []string
}

type VehicleService interface {
	// GetByRego looks a vehicle up by its unique registration.
	// Returns ErrVehicleNotFound when no row matches.
	GetByRego(ctx context.Context, rego string) (*Vehicle, error)

	// Create inserts a new active vehicle. The registration is stored
	// upper-cased and trimmed so lookups are canonical.
	Create(ctx context.Context, input VehicleInput) (*Vehicle, error)

	// UpdateTare stores a freshly captured tare weight on the vehicle.
	UpdateTare(ctx context.Context, vehicleID int, tare decimal.Decimal) error

	// GetAll returns all active vehicles ordered by registration.
	GetAll(ctx context.Context) ([]Vehicle, error)
}

type vehicleService struct {
	pool *pgxpool.Pool
}

// NewVehicleService constructs a VehicleService backed by PostgreSQL.
func NewVehicleService(pool *pgxpool.Pool) VehicleService {
	return &vehicleService{pool: pool}
}

// CanonicalRego normalises a typed registration for lookup and storage.
func CanonicalRego(rego string) string {
	return strings.ToUpper(strings.TrimSpace(rego))
}

const vehicleColumns = `id, rego, tare_weight, max_weight, is_active, is_blocked, restricted_materials, created_at`

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	v := &Vehicle{}
	err := row.Scan(&v.ID, &v.Rego, &v.TareWeight, &v.MaxWeight,
		&v.IsActive, &v.IsBlocked, &v.RestrictedMaterials, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *vehicleService) GetByRego(ctx context.Context, rego string) (*Vehicle, error) {
	rego = CanonicalRego(rego)
	v, err := scanVehicle(s.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE rego = $1`, rego))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rego %q: %w", rego, ErrVehicleNotFound)
		}
		return nil, fmt.Errorf("get vehicle %q: %w", rego, err)
	}
	return v, nil
}

func (s *vehicleService) Create(ctx context.Context, input VehicleInput) (*Vehicle, error) {
	rego := CanonicalRego(input.Rego)
	if rego == "" {
		return nil, errors.New("vehicle registration is required")
	}
	materials := input.RestrictedMaterials
	if materials == nil {
		materials = []string{}
	}

	v, err := scanVehicle(s.pool.QueryRow(ctx, `
		INSERT INTO vehicles (rego, tare_weight, max_weight, restricted_materials)
		VALUES ($1, $2, $3, $4)
		RETURNING `+vehicleColumns,
		rego, input.TareWeight, input.MaxWeight, materials))
	if err != nil {
		return nil, fmt.Errorf("create vehicle %q: %w", rego, err)
	}
	return v, nil
}

func (s *vehicleService) UpdateTare(ctx context.Context, vehicleID int, tare decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vehicles SET tare_weight = $1 WHERE id = $2`, tare, vehicleID)
	if err != nil {
		return fmt.Errorf("update tare for vehicle %d: %w", vehicleID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", vehicleID, ErrVehicleNotFound)
	}
	return nil
}

func (s *vehicleService) GetAll(ctx context.Context) ([]Vehicle, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE is_active = true ORDER BY rego`)
	if err != nil {
		return nil, fmt.Errorf("get vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Rego, &v.TareWeight, &v.MaxWeight,
			&v.IsActive, &v.IsBlocked, &v.RestrictedMaterials, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
