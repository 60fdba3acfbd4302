package rides

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore stores rides in Postgres. Assign and UpdateStatus are
// conditional UPDATEs so transitions serialize at the row level.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const rideColumns = `id, passenger_id, pickup_address, pickup_lat, pickup_lng,
	drop_address, drop_lat, drop_lng, driver_id, status, fare, distance_km,
	eta_minutes, notes, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, r *Ride) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	_, err := p.db.Exec(ctx,
		`INSERT INTO rides (id, passenger_id, pickup_address, pickup_lat, pickup_lng,
		   drop_address, drop_lat, drop_lng, driver_id, status, fare, distance_km,
		   eta_minutes, notes, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.PassengerID, r.Pickup.Address, r.Pickup.Lat, r.Pickup.Lng,
		r.Drop.Address, r.Drop.Lat, r.Drop.Lng, r.DriverID, string(r.Status),
		r.FareRupees, r.DistanceKm, r.EtaMinutes, r.Notes, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return rideStoreErr("create ride", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Ride, error) {
	row := p.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	return scanRide(row)
}

func (p *PostgresStore) Assign(ctx context.Context, rideID, driverID string) (*Ride, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE rides SET driver_id=$1, status=$2, updated_at=NOW()
		 WHERE id=$3 AND status=$4 AND driver_id IS NULL
		 RETURNING `+rideColumns,
		driverID, string(StatusAssigned), rideID, string(StatusPending))
	r, err := scanRide(row)
	if errors.Is(err, ErrNotFound) {
		return nil, p.conflictOrMissing(ctx, rideID)
	}
	return r, err
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, rideID string, from, to Status) (*Ride, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE rides SET status=$1,
		   driver_id=CASE WHEN $1=$4 THEN NULL ELSE driver_id END,
		   updated_at=NOW()
		 WHERE id=$2 AND status=$3
		 RETURNING `+rideColumns,
		string(to), rideID, string(from), string(StatusCancelled))
	r, err := scanRide(row)
	if errors.Is(err, ErrNotFound) {
		return nil, p.conflictOrMissing(ctx, rideID)
	}
	return r, err
}

func (p *PostgresStore) ListByPassenger(ctx context.Context, passengerID string) ([]Ride, error) {
	return p.list(ctx, `SELECT `+rideColumns+` FROM rides WHERE passenger_id=$1 ORDER BY created_at DESC`, passengerID)
}

func (p *PostgresStore) ListByDriver(ctx context.Context, driverID string) ([]Ride, error) {
	return p.list(ctx, `SELECT `+rideColumns+` FROM rides WHERE driver_id=$1 ORDER BY created_at DESC`, driverID)
}

func (p *PostgresStore) ActiveByDriver(ctx context.Context, driverID string) (*Ride, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+rideColumns+` FROM rides
		 WHERE driver_id=$1 AND status IN ($2,$3)
		 ORDER BY created_at DESC LIMIT 1`,
		driverID, string(StatusAssigned), string(StatusEnRoute))
	return scanRide(row)
}

func (p *PostgresStore) list(ctx context.Context, query string, arg any) ([]Ride, error) {
	rows, err := p.db.Query(ctx, query, arg)
	if err != nil {
		return nil, rideStoreErr("list rides", err)
	}
	defer rows.Close()

	var out []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, rideStoreErr("list rides", err)
	}
	return out, nil
}

// conflictOrMissing disambiguates a zero-row conditional UPDATE: the ride
// either does not exist or its status moved underneath the caller.
func (p *PostgresStore) conflictOrMissing(ctx context.Context, rideID string) error {
	if _, err := p.Get(ctx, rideID); err != nil {
		return err
	}
	return ErrConflict
}

func scanRide(row pgx.Row) (*Ride, error) {
	var r Ride
	var status string
	err := row.Scan(&r.ID, &r.PassengerID, &r.Pickup.Address, &r.Pickup.Lat, &r.Pickup.Lng,
		&r.Drop.Address, &r.Drop.Lat, &r.Drop.Lng, &r.DriverID, &status,
		&r.FareRupees, &r.DistanceKm, &r.EtaMinutes, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, rideStoreErr("scan ride", err)
	}
	r.Status = Status(status)
	return &r, nil
}

func rideStoreErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
