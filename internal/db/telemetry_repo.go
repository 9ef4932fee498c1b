package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"kynex/internal/types"
)

// TelemetryRepo provides data access for the telemetry table. Readings are
// append-only; per-interval kWh is derived from watts at read time, never
// stored.
type TelemetryRepo struct {
	db DBTX
}

// NewTelemetryRepo creates a new TelemetryRepo backed by the given database
// connection (pool or transaction).
func NewTelemetryRepo(db DBTX) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// InsertBatch appends a batch of readings in one round trip using unnest.
// An empty batch is a no-op.
func (r *TelemetryRepo) InsertBatch(ctx context.Context, readings []types.TelemetryReading) error {
	if len(readings) == 0 {
		return nil
	}

	ids := make([]string, len(readings))
	timestamps := make([]time.Time, len(readings))
	watts := make([]float64, len(readings))
	euros := make([]float64, len(readings))
	temps := make([]*float64, len(readings))
	estimated := make([]bool, len(readings))
	for i, reading := range readings {
		ids[i] = reading.CustomerID
		timestamps[i] = reading.Timestamp.UTC()
		watts[i] = reading.Watts
		euros[i] = reading.Euros
		temps[i] = reading.TempC
		estimated[i] = reading.IsEstimated
	}

	query := `
		INSERT INTO telemetry (customer_id, ts, watts, euros, temp_c, is_estimated)
		SELECT * FROM unnest(
			$1::text[], $2::timestamptz[], $3::float8[],
			$4::float8[], $5::float8[], $6::bool[]
		)
		ON CONFLICT (customer_id, ts) DO NOTHING`

	_, err := r.db.Exec(ctx, query, ids, timestamps, watts, euros, temps, estimated)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert telemetry batch", err)
	}
	return nil
}

// ReadRange returns one customer's readings in [start, end), ordered by
// timestamp ascending.
func (r *TelemetryRepo) ReadRange(ctx context.Context, customerID string, start, end time.Time) ([]types.TelemetryReading, error) {
	query := `
		SELECT customer_id, ts, watts, euros, temp_c, is_estimated
		FROM telemetry
		WHERE customer_id = $1
		  AND ts >= $2
		  AND ts < $3
		ORDER BY ts ASC`

	rows, err := r.db.Query(ctx, query, customerID, start.UTC(), end.UTC())
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query telemetry range", err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

// LatestByCustomer returns the most recent reading for every customer with
// at least one reading.
func (r *TelemetryRepo) LatestByCustomer(ctx context.Context) (map[string]types.TelemetryReading, error) {
	query := `
		SELECT DISTINCT ON (customer_id)
		       customer_id, ts, watts, euros, temp_c, is_estimated
		FROM telemetry
		ORDER BY customer_id, ts DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query latest telemetry", err)
	}
	defer rows.Close()

	readings, err := scanReadings(rows)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]types.TelemetryReading, len(readings))
	for _, reading := range readings {
		latest[reading.CustomerID] = reading
	}
	return latest, nil
}

// Latest returns one customer's most recent reading, or nil when the
// customer has no telemetry.
func (r *TelemetryRepo) Latest(ctx context.Context, customerID string) (*types.TelemetryReading, error) {
	query := `
		SELECT customer_id, ts, watts, euros, temp_c, is_estimated
		FROM telemetry
		WHERE customer_id = $1
		ORDER BY ts DESC
		LIMIT 1`

	var reading types.TelemetryReading
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&reading.CustomerID, &reading.Timestamp, &reading.Watts,
		&reading.Euros, &reading.TempC, &reading.IsEstimated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query latest reading", err)
	}
	return &reading, nil
}

// ReadDailyKWh aggregates 15-minute watts into kWh per UTC calendar day for
// [start, end), ordered by day ascending. Each reading contributes
// watts * 0.25h / 1000.
func (r *TelemetryRepo) ReadDailyKWh(ctx context.Context, customerID string, start, end time.Time) ([]types.DailyConsumption, error) {
	query := `
		SELECT to_char(ts AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       SUM(watts * 0.25 / 1000.0) AS kwh
		FROM telemetry
		WHERE customer_id = $1
		  AND ts >= $2
		  AND ts < $3
		GROUP BY day
		ORDER BY day ASC`

	rows, err := r.db.Query(ctx, query, customerID, start.UTC(), end.UTC())
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query daily consumption", err)
	}
	defer rows.Close()

	var days []types.DailyConsumption
	for rows.Next() {
		var d types.DailyConsumption
		if err := rows.Scan(&d.Day, &d.KWh); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan daily consumption row", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating daily consumption rows", err)
	}
	return days, nil
}

// Stats30d returns the trailing-30-day peak and average watts anchored at the
// customer's latest reading. Returns nil when the customer has no telemetry.
func (r *TelemetryRepo) Stats30d(ctx context.Context, customerID string) (*types.CustomerStats30d, error) {
	query := `
		SELECT MAX(watts), AVG(watts)
		FROM telemetry
		WHERE customer_id = $1
		  AND ts >= (SELECT MAX(ts) FROM telemetry WHERE customer_id = $1) - interval '30 days'`

	var peak, avg *float64
	err := r.db.QueryRow(ctx, query, customerID).Scan(&peak, &avg)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query telemetry stats", err)
	}
	if peak == nil || avg == nil {
		return nil, nil
	}
	return &types.CustomerStats30d{
		CustomerID: customerID,
		PeakWatts:  *peak,
		AvgWatts:   *avg,
	}, nil
}

func scanReadings(rows pgx.Rows) ([]types.TelemetryReading, error) {
	var readings []types.TelemetryReading
	for rows.Next() {
		var reading types.TelemetryReading
		if err := rows.Scan(
			&reading.CustomerID, &reading.Timestamp, &reading.Watts,
			&reading.Euros, &reading.TempC, &reading.IsEstimated,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan telemetry row", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating telemetry rows", err)
	}
	return readings, nil
}
