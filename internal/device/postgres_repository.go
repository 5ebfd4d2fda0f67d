package device

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the devices table.
const Schema = `
	CREATE TABLE IF NOT EXISTS prevair_devices (
		unit        INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		kind        TEXT NOT NULL,
		unit_label  TEXT NOT NULL DEFAULT '',
		used        BOOLEAN NOT NULL DEFAULT FALSE,
		value       TEXT NOT NULL DEFAULT '',
		level       INTEGER NOT NULL DEFAULT 0,
		icon        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)
`

const selectColumns = `
	SELECT unit, name, kind, unit_label, used, value, level, icon, status, created_at, updated_at
	FROM prevair_devices
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a device by unit.
func (r *PostgresRepository) Get(ctx context.Context, unit int) (*Device, error) {
	d, err := scanDevice(r.pool.QueryRow(ctx, selectColumns+` WHERE unit = $1`, unit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return d, nil
}

// List retrieves all devices ordered by unit.
func (r *PostgresRepository) List(ctx context.Context) ([]*Device, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` ORDER BY unit`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return devices, nil
}

// Create creates a new device.
func (r *PostgresRepository) Create(ctx context.Context, d *Device) error {
	query := `
		INSERT INTO prevair_devices (unit, name, kind, unit_label, used, value, level, icon, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (unit) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		d.Unit,
		d.Name,
		d.Kind,
		d.UnitLabel,
		d.Used,
		d.Value,
		d.Level,
		d.Icon,
		d.Status,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceExists
	}

	return nil
}

// Update overwrites an existing device.
func (r *PostgresRepository) Update(ctx context.Context, d *Device) error {
	query := `
		UPDATE prevair_devices SET
			name = $2,
			kind = $3,
			unit_label = $4,
			used = $5,
			value = $6,
			level = $7,
			icon = $8,
			status = $9,
			updated_at = $10
		WHERE unit = $1
	`

	result, err := r.pool.Exec(ctx, query,
		d.Unit,
		d.Name,
		d.Kind,
		d.UnitLabel,
		d.Used,
		d.Value,
		d.Level,
		d.Icon,
		d.Status,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete removes a device.
func (r *PostgresRepository) Delete(ctx context.Context, unit int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM prevair_devices WHERE unit = $1`, unit)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(
		&d.Unit,
		&d.Name,
		&d.Kind,
		&d.UnitLabel,
		&d.Used,
		&d.Value,
		&d.Level,
		&d.Icon,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
