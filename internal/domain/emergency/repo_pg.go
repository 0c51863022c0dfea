package emergency

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

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, patient_id, status, type, description, address, latitude, longitude,
	severity, grade, symptoms, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var q Request
	err := row.Scan(&q.ID, &q.PatientID, &q.Status, &q.Type, &q.Description, &q.Address,
		&q.Latitude, &q.Longitude, &q.Severity, &q.Grade, &q.Symptoms, &q.CreatedAt, &q.UpdatedAt)
	return &q, err
}

func (r *requestRepoPG) Create(ctx context.Context, q *Request) error {
	q.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_requests (id, patient_id, status, type, description,
			address, latitude, longitude, severity, grade, symptoms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		q.ID, q.PatientID, q.Status, q.Type, q.Description,
		q.Address, q.Latitude, q.Longitude, q.Severity, q.Grade, q.Symptoms)
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM emergency_requests WHERE id = $1`, id))
}

func (r *requestRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE emergency_requests SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

// CancelIfActive uses the same guarded-update shape as the hospital bed
// decrement: the WHERE clause makes the terminal-state check and the write
// one atomic statement, so a request completed by a concurrent writer can
// never be overwritten with CANCELLED.
func (r *requestRepoPG) CancelIfActive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_requests SET status=$2, updated_at=NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)`,
		id, RequestCancelled, RequestCompleted, RequestCancelled)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *requestRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM emergency_requests WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM emergency_requests
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectRequests(rows)
	return items, total, err
}

func (r *requestRepoPG) List(ctx context.Context, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM emergency_requests`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM emergency_requests
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectRequests(rows)
	return items, total, err
}

func (r *requestRepoPG) ListByStatuses(ctx context.Context, statuses []string) ([]*Request, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM emergency_requests
		WHERE status = ANY($1) ORDER BY severity DESC, created_at DESC`, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]*Request, error) {
	var items []*Request
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

type responseRepoPG struct{ pool *pgxpool.Pool }

func NewResponseRepoPG(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepoPG{pool: pool}
}

func (r *responseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const responseCols = `id, emergency_request_id, organization_id, status, dispatch_time,
	completion_time, notes, created_at, updated_at`

func scanResponse(row pgx.Row) (*Response, error) {
	var p Response
	err := row.Scan(&p.ID, &p.EmergencyRequestID, &p.OrganizationID, &p.Status,
		&p.DispatchTime, &p.CompletionTime, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *responseRepoPG) Create(ctx context.Context, p *Response) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_responses (id, emergency_request_id, organization_id,
			status, dispatch_time, completion_time, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.EmergencyRequestID, p.OrganizationID, p.Status,
		p.DispatchTime, p.CompletionTime, p.Notes)
	return err
}

func (r *responseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Response, error) {
	return scanResponse(r.conn(ctx).QueryRow(ctx,
		`SELECT `+responseCols+` FROM emergency_responses WHERE id = $1`, id))
}

func (r *responseRepoPG) Update(ctx context.Context, p *Response) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_responses SET status=$2, completion_time=$3, notes=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.CompletionTime, p.Notes)
	return err
}

func (r *responseRepoPG) ExistsForOrg(ctx context.Context, requestID, orgID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM emergency_responses
			WHERE emergency_request_id = $1 AND organization_id = $2
		)`, requestID, orgID).Scan(&exists)
	return exists, err
}

func (r *responseRepoPG) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Response, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+responseCols+` FROM emergency_responses
		WHERE organization_id = $1 ORDER BY dispatch_time DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func (r *responseRepoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Response, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+responseCols+` FROM emergency_responses
		WHERE emergency_request_id = $1 ORDER BY dispatch_time DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func (r *responseRepoPG) ListByStatus(ctx context.Context, status string) ([]*Response, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+responseCols+` FROM emergency_responses
		WHERE status = $1 ORDER BY dispatch_time DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func collectResponses(rows pgx.Rows) ([]*Response, error) {
	var items []*Response
	for rows.Next() {
		p, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
