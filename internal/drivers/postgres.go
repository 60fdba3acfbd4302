package drivers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridehail/internal/geo"
)

// PostgresRegistry stores drivers in Postgres. Reserve relies on a
// conditional UPDATE so the availability flip is linearizable per row.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

const driverColumns = `id, name, phone, vehicle_type, license_plate, lat, lng, available, seq, created_at`

func (p *PostgresRegistry) Register(ctx context.Context, d *Driver) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	err := p.db.QueryRow(ctx,
		`INSERT INTO drivers (id, name, phone, vehicle_type, license_plate, lat, lng, available, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING seq`,
		d.ID, d.Name, d.Phone, d.VehicleType, d.LicensePlate,
		d.Location.Lat, d.Location.Lng, d.Available, d.CreatedAt).
		Scan(&d.seq)
	if err != nil {
		return storeErr("register driver", err)
	}
	return nil
}

func (p *PostgresRegistry) Get(ctx context.Context, id string) (*Driver, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id=$1`, id)
	return scanDriver(row)
}

func (p *PostgresRegistry) FindAvailable(ctx context.Context) ([]Driver, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE available ORDER BY seq`)
	if err != nil {
		return nil, storeErr("find available", err)
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("find available", err)
	}
	return out, nil
}

func (p *PostgresRegistry) SetAvailability(ctx context.Context, id string, available bool) (*Driver, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE drivers SET available=$1 WHERE id=$2 RETURNING `+driverColumns, available, id)
	return scanDriver(row)
}

func (p *PostgresRegistry) UpdateLocation(ctx context.Context, id string, loc geo.Coordinate) (*Driver, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE drivers SET lat=$1, lng=$2 WHERE id=$3 RETURNING `+driverColumns, loc.Lat, loc.Lng, id)
	return scanDriver(row)
}

// Reserve flips available true→false only when it is currently true.
// Zero rows means somebody else got there first, or the id is unknown.
func (p *PostgresRegistry) Reserve(ctx context.Context, id string) (*Driver, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE drivers SET available=false WHERE id=$1 AND available RETURNING `+driverColumns, id)
	d, err := scanDriver(row)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := p.Get(ctx, id); getErr == nil {
			return nil, ErrAlreadyReserved
		} else if errors.Is(getErr, ErrNotFound) {
			return nil, ErrNotFound
		} else {
			return nil, getErr
		}
	}
	return d, err
}

func (p *PostgresRegistry) Release(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `UPDATE drivers SET available=true WHERE id=$1`, id)
	if err != nil {
		return storeErr("release driver", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.VehicleType, &d.LicensePlate,
		&d.Location.Lat, &d.Location.Lng, &d.Available, &d.seq, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("scan driver", err)
	}
	return &d, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
