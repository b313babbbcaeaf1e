package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MasterDataService resolves the optional references a docket can carry.
// Lookups are by code; a miss returns a nil record and no error so callers
// can treat absent references as "not selected".
type MasterDataService interface {
	GetSiteByCode(ctx context.Context, code string) (*Site, error)
	GetItemByCode(ctx context.Context, code string) (*Item, error)
	GetCustomerByCode(ctx context.Context, code string) (*Customer, error)
	GetTransportByCode(ctx context.Context, code string) (*Transport, error)
	GetDriverByCode(ctx context.Context, code string) (*Driver, error)
}

type masterDataService struct {
	pool *pgxpool.Pool
}

// NewMasterDataService constructs a MasterDataService backed by PostgreSQL.
func NewMasterDataService(pool *pgxpool.Pool) MasterDataService {
	return &masterDataService{pool: pool}
}

func (s *masterDataService) GetSiteByCode(ctx context.Context, code string) (*Site, error) {
	site := &Site{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, is_active FROM sites WHERE code = $1`, code,
	).Scan(&site.ID, &site.Code, &site.Name, &site.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get site %q: %w", code, err)
	}
	return site, nil
}

func (s *masterDataService) GetItemByCode(ctx context.Context, code string) (*Item, error) {
	item := &Item{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, is_hazardous, is_active FROM items WHERE code = $1`, code,
	).Scan(&item.ID, &item.Code, &item.Name, &item.IsHazardous, &item.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item %q: %w", code, err)
	}
	return item, nil
}

func (s *masterDataService) GetCustomerByCode(ctx context.Context, code string) (*Customer, error) {
	c := &Customer{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, restricted_materials, is_active FROM customers WHERE code = $1`, code,
	).Scan(&c.ID, &c.Code, &c.Name, &c.RestrictedMaterials, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer %q: %w", code, err)
	}
	return c, nil
}

func (s *masterDataService) GetTransportByCode(ctx context.Context, code string) (*Transport, error) {
	tr := &Transport{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, is_active FROM transports WHERE code = $1`, code,
	).Scan(&tr.ID, &tr.Code, &tr.Name, &tr.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transport %q: %w", code, err)
	}
	return tr, nil
}

func (s *masterDataService) GetDriverByCode(ctx context.Context, code string) (*Driver, error) {
	d := &Driver{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, hazmat_cert, is_active FROM drivers WHERE code = $1`, code,
	).Scan(&d.ID, &d.Code, &d.Name, &d.HazmatCert, &d.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get driver %q: %w", code, err)
	}
	return d, nil
}
