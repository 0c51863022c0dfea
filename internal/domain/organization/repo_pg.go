package organization

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lifeline/lifeline/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const orgCols = `id, name, type, status, latitude, longitude, available_beds, capacity,
	address, phone, created_at, updated_at`

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Type, &o.Status, &o.Latitude, &o.Longitude,
		&o.AvailableBeds, &o.Capacity, &o.Address, &o.Phone, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organizations (id, name, type, status, latitude, longitude,
			available_beds, capacity, address, phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.Name, o.Type, o.Status, o.Latitude, o.Longitude,
		o.AvailableBeds, o.Capacity, o.Address, o.Phone)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET name=$2, latitude=$3, longitude=$4, address=$5,
			phone=$6, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Latitude, o.Longitude, o.Address, o.Phone)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE organizations SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) UpdateCapacity(ctx context.Context, id uuid.UUID, availableBeds int, cap Capacity) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET available_beds=$2, capacity=$3, updated_at=NOW()
		WHERE id = $1`, id, availableBeds, cap)
	return err
}

// DecrementBeds is the guard against the concurrent-assignment race: the
// WHERE clause makes the take-a-bed step atomic, so of two competing
// transactions only one sees available_beds > 0.
func (r *repoPG) DecrementBeds(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET available_beds = available_beds - 1, updated_at=NOW()
		WHERE id = $1 AND available_beds > 0`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ListByType(ctx context.Context, orgType string, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM organizations WHERE type = $1 AND status <> 'INACTIVE'`, orgType).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orgCols+` FROM organizations
		WHERE type = $1 AND status <> 'INACTIVE'
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orgType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}

// ListNearby orders by haversine distance and keeps orgs within radiusKm.
func (r *repoPG) ListNearby(ctx context.Context, orgType string, lat, lng, radiusKm float64) ([]*Organization, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orgCols+` FROM (
			SELECT *, 6371 * acos(
				least(1.0, cos(radians($2)) * cos(radians(latitude)) *
					cos(radians(longitude) - radians($3)) +
					sin(radians($2)) * sin(radians(latitude)))
			) AS distance_km
			FROM organizations
			WHERE type = $1 AND status <> 'INACTIVE' AND status <> 'OFFLINE'
		) nearby
		WHERE distance_km <= $4
		ORDER BY distance_km`, orgType, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, nil
}

func (r *repoPG) ListActiveByType(ctx context.Context, orgType string) ([]*Organization, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orgCols+` FROM organizations
		WHERE type = $1 AND status <> 'INACTIVE'
		ORDER BY name`, orgType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, nil
}
