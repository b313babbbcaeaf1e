package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DocketService interface {
	// SaveWeighing inserts or updates a docket (by presence of an id) and,
	// when storeTare is non-nil, records the captured tare on the vehicle,
	// both inside one transaction. The generated id and reference are
	// populated on the docket before return.
	SaveWeighing(ctx context.Context, d *Docket, storeTare *decimal.Decimal) error

	// GetByID returns a single docket.
	GetByID(ctx context.Context, id int) (*Docket, error)

	// FindOpenForVehicle returns the most recent OPEN docket for a vehicle
	// created at or after since, or nil when there is none.
	FindOpenForVehicle(ctx context.Context, vehicleID int, since time.Time) (*Docket, error)

	// GetForVehicle returns a vehicle's dockets, newest first.
	GetForVehicle(ctx context.Context, vehicleID int, limit int) ([]Docket, error)
}

type docketService struct {
	pool *pgxpool.Pool
}

// NewDocketService constructs a DocketService backed by PostgreSQL.
func NewDocketService(pool *pgxpool.Pool) DocketService {
	return &docketService{pool: pool}
}

const docketColumns = `id, reference, vehicle_id, source_site_id, dest_site_id, item_id,
	customer_id, transport_id, driver_id, entrance_weight, exit_weight, net_weight,
	unit, remarks, status, transaction_type, mode, created_at, closed_at`

func scanDocket(row pgx.Row) (*Docket, error) {
	d := &Docket{}
	err := row.Scan(&d.ID, &d.Reference, &d.VehicleID, &d.SourceSiteID, &d.DestSiteID,
		&d.ItemID, &d.CustomerID, &d.TransportID, &d.DriverID,
		&d.EntranceWeight, &d.ExitWeight, &d.NetWeight,
		&d.Unit, &d.Remarks, &d.Status, &d.TransactionType, &d.Mode,
		&d.CreatedAt, &d.ClosedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *docketService) SaveWeighing(ctx context.Context, d *Docket, storeTare *decimal.Decimal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin weighing transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if d.ID == 0 {
		if d.Reference == "" {
			d.Reference = uuid.NewString()
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO dockets (reference, vehicle_id, source_site_id, dest_site_id, item_id,
			                     customer_id, transport_id, driver_id, entrance_weight, exit_weight,
			                     net_weight, unit, remarks, status, transaction_type, mode, closed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING id, created_at`,
			d.Reference, d.VehicleID, d.SourceSiteID, d.DestSiteID, d.ItemID,
			d.CustomerID, d.TransportID, d.DriverID, d.EntranceWeight, d.ExitWeight,
			d.NetWeight, d.Unit, d.Remarks, d.Status, d.TransactionType, d.Mode, d.ClosedAt,
		).Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert docket: %w", err)
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE dockets
			SET entrance_weight = $1, exit_weight = $2, net_weight = $3, remarks = $4,
			    status = $5, transaction_type = $6, mode = $7, closed_at = $8
			WHERE id = $9`,
			d.EntranceWeight, d.ExitWeight, d.NetWeight, d.Remarks,
			d.Status, d.TransactionType, d.Mode, d.ClosedAt, d.ID)
		if err != nil {
			return fmt.Errorf("update docket %d: %w", d.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("docket %d does not exist", d.ID)
		}
	}

	if storeTare != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE vehicles SET tare_weight = $1 WHERE id = $2`, *storeTare, d.VehicleID); err != nil {
			return fmt.Errorf("store tare for vehicle %d: %w", d.VehicleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit weighing transaction: %w", err)
	}
	return nil
}

func (s *docketService) GetByID(ctx context.Context, id int) (*Docket, error) {
	d, err := scanDocket(s.pool.QueryRow(ctx,
		`SELECT `+docketColumns+` FROM dockets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("docket %d not found", id)
		}
		return nil, fmt.Errorf("get docket %d: %w", id, err)
	}
	return d, nil
}

func (s *docketService) FindOpenForVehicle(ctx context.Context, vehicleID int, since time.Time) (*Docket, error) {
	d, err := scanDocket(s.pool.QueryRow(ctx, `
		SELECT `+docketColumns+`
		FROM dockets
		WHERE vehicle_id = $1 AND status = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1`,
		vehicleID, DocketStatusOpen, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open docket for vehicle %d: %w", vehicleID, err)
	}
	return d, nil
}

func (s *docketService) GetForVehicle(ctx context.Context, vehicleID int, limit int) ([]Docket, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+docketColumns+`
		FROM dockets
		WHERE vehicle_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("get dockets for vehicle %d: %w", vehicleID, err)
	}
	defer rows.Close()

	var dockets []Docket
	for rows.Next() {
		var d Docket
		if err := rows.Scan(&d.ID, &d.Reference, &d.VehicleID, &d.SourceSiteID, &d.DestSiteID,
			&d.ItemID, &d.CustomerID, &d.TransportID, &d.DriverID,
			&d.EntranceWeight, &d.ExitWeight, &d.NetWeight,
			&d.Unit, &d.Remarks, &d.Status, &d.TransactionType, &d.Mode,
			&d.CreatedAt, &d.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan docket: %w", err)
		}
		dockets = append(dockets, d)
	}
	return dockets, rows.Err()
}
