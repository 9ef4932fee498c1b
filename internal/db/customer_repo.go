package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"kynex/internal/types"
)

// CustomerRepo provides data access for the customers table.
type CustomerRepo struct {
	db DBTX
}

// NewCustomerRepo creates a new CustomerRepo backed by the given database
// connection (pool or transaction).
func NewCustomerRepo(db DBTX) *CustomerRepo {
	return &CustomerRepo{db: db}
}

const customerColumns = `
	id, name, segment, city, contracted_power_kva, tariff, utility,
	price_eur_per_kwh, fixed_daily_fee_eur, home_area_m2, household_size,
	has_solar, ev_count, created_at`

// GetByID returns the customer with the given ID, or a not_found_customer
// error when no row exists.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*types.CustomerProfile, error) {
	query := `SELECT` + customerColumns + `
		FROM customers
		WHERE id = $1`

	var c types.CustomerProfile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Segment, &c.City, &c.ContractedPowerKVA,
		&c.Tariff, &c.Utility, &c.PriceEURPerKWh, &c.FixedDailyFeeEUR,
		&c.HomeAreaM2, &c.HouseholdSize, &c.HasSolar, &c.EVCount, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundCustomer, "customer not found", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query customer", err)
	}
	return &c, nil
}

// List returns all customers ordered by creation time then ID, so iteration
// order is stable across calls.
func (r *CustomerRepo) List(ctx context.Context) ([]types.CustomerProfile, error) {
	query := `SELECT` + customerColumns + `
		FROM customers
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list customers", err)
	}
	defer rows.Close()

	var customers []types.CustomerProfile
	for rows.Next() {
		var c types.CustomerProfile
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Segment, &c.City, &c.ContractedPowerKVA,
			&c.Tariff, &c.Utility, &c.PriceEURPerKWh, &c.FixedDailyFeeEUR,
			&c.HomeAreaM2, &c.HouseholdSize, &c.HasSolar, &c.EVCount, &c.CreatedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan customer row", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating customer rows", err)
	}
	return customers, nil
}

// Insert creates a customer row. Used by the telemetry generator to seed
// development fleets; the API surface has no customer creation endpoint.
func (r *CustomerRepo) Insert(ctx context.Context, c *types.CustomerProfile) error {
	query := `
		INSERT INTO customers (
			id, name, segment, city, contracted_power_kva, tariff, utility,
			price_eur_per_kwh, fixed_daily_fee_eur, home_area_m2,
			household_size, has_solar, ev_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.Name, c.Segment, c.City, c.ContractedPowerKVA,
		c.Tariff, c.Utility, c.PriceEURPerKWh, c.FixedDailyFeeEUR,
		c.HomeAreaM2, c.HouseholdSize, c.HasSolar, c.EVCount, c.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert customer", err)
	}
	return nil
}
