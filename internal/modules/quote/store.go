// README: Quote store backed by PostgreSQL.
package quote

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coachquote/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const quoteColumns = `
    id, client_id, created_by, status, status_version,
    request, trip, pricing, fleet, rate_table_version, needs_review,
    created_at, sent_at, decided_at, expires_at`

func (s *Store) Create(ctx context.Context, q *Quote) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO quotes (
            id, client_id, created_by, status, status_version,
            request, trip, pricing, fleet, total_ttc, currency,
            rate_table_version, needs_review, created_at, expires_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9, $10::numeric, $11,
            $12, $13, $14, $15
        )`,
		string(q.ID),
		string(q.ClientID),
		string(q.CreatedBy),
		string(q.Status),
		q.StatusVersion,
		q.Request, q.Trip, q.Pricing, q.Fleet,
		q.Pricing.TotalTTC.String(),
		q.Pricing.Currency,
		q.RateTableVersion,
		q.NeedsReview,
		q.CreatedAt,
		q.ExpiresAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Quote, error) {
	row := s.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, string(id))
	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// UpdateStatus moves a quote from one status to another only if nobody else touched it
// since version was read. It reports false when the row did not match.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE quotes
        SET status = $1,
            status_version = status_version + 1,
            sent_at = CASE WHEN $1 = 'sent' THEN NOW() ELSE sent_at END,
            decided_at = CASE WHEN $1 IN ('accepted','declined','expired') THEN NOW() ELSE decided_at END
        WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO quote_events (
            quote_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.QuoteID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) Events(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, quote_id, from_status, to_status, actor_type, actor_id, created_at
        FROM quote_events
        WHERE quote_id = $1
        ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var actor *string
		if err := rows.Scan(&e.ID, &e.QuoteID, &e.FromStatus, &e.ToStatus, &e.ActorType, &actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor != nil {
			a := types.ID(*actor)
			e.ActorID = &a
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListExpired returns open quotes whose validity ended at or before now, oldest first.
func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Quote, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+quoteColumns+`
        FROM quotes
        WHERE status IN ('draft','sent') AND expires_at <= $1
        ORDER BY expires_at
        LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.ClientID, &q.CreatedBy, &q.Status, &q.StatusVersion,
		&q.Request, &q.Trip, &q.Pricing, &q.Fleet, &q.RateTableVersion, &q.NeedsReview,
		&q.CreatedAt, &q.SentAt, &q.DecidedAt, &q.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
