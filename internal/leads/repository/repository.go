package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres lead store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithinTx runs fn in a read-committed transaction. Writers serialize per
// lead through the row lock taken by Tx.GetLead.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{q: tx})
	})
}

const leadColumns = `id, lead_code, stage, status, source, agent_id, agent_name,
	destination_code, destination_name, spoc_name, spoc_email, spoc_mobile,
	assigned_to_id, assigned_to_name, assigned_to_email, assigned_by_id, assigned_at,
	next_action_type, next_action_due_at, is_overdue, stage_history, last_revision,
	engagement_id, created_by_id, created_by_name, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (Lead, error) {
	var lead Lead
	var stage, status string
	var history []byte
	if err := s.Scan(
		&lead.ID, &lead.LeadCode, &stage, &status, &lead.Source, &lead.AgentID, &lead.AgentName,
		&lead.DestinationCode, &lead.DestinationName, &lead.SpocName, &lead.SpocEmail, &lead.SpocMobile,
		&lead.AssignedToID, &lead.AssignedToName, &lead.AssignedToEmail, &lead.AssignedByID, &lead.AssignedAt,
		&lead.NextActionType, &lead.NextActionDueAt, &lead.IsOverdue, &history, &lead.LastRevision,
		&lead.EngagementID, &lead.CreatedByID, &lead.CreatedByName, &lead.CreatedAt, &lead.UpdatedAt,
	); err != nil {
		return Lead{}, err
	}
	lead.Stage = domain.Stage(stage)
	lead.Status = domain.Status(status)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &lead.StageHistory); err != nil {
			return Lead{}, fmt.Errorf("decode stage history: %w", err)
		}
	}
	return lead, nil
}

func getLead(ctx context.Context, q db.Querier, id uuid.UUID, forUpdate bool) (Lead, error) {
	query := "SELECT " + leadColumns + " FROM leads WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	lead, err := scanLead(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	return getLead(ctx, r.pool, id, false)
}

func (r *Repository) ListLeads(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args := buildLeadListWhere(params)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, max(params.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		leadColumns, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []any) {
	clauses := []string{"TRUE"}
	args := make([]any, 0, 5)
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if params.Stage != nil {
		add("stage = $%d", string(*params.Stage))
	}
	if params.Status != nil {
		add("status = $%d", string(*params.Status))
	}
	if params.AssignedToID != nil {
		add("assigned_to_id = $%d", *params.AssignedToID)
	}
	if params.Overdue != nil {
		add("is_overdue = $%d", *params.Overdue)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		add("(lead_code ILIKE $%[1]d OR agent_name ILIKE $%[1]d OR destination_name ILIKE $%[1]d OR spoc_name ILIKE $%[1]d)", "%"+search+"%")
	}
	return strings.Join(clauses, " AND "), args
}

func (r *Repository) ListTimeline(ctx context.Context, leadID uuid.UUID) ([]TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, seq, event_type, title, description, metadata,
			created_by_id, created_by_email, created_by_name, created_at
		FROM lead_timeline_events
		WHERE lead_id = $1
		ORDER BY created_at ASC, seq ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]TimelineEvent, 0)
	for rows.Next() {
		var e TimelineEvent
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Seq, &e.EventType, &e.Title, &e.Description, &metadata,
			&e.CreatedByID, &e.CreatedByEmail, &e.CreatedByName, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode timeline metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) ListQuotations(ctx context.Context, leadID uuid.UUID) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, revision_number, itinerary_content, total_price, currency, note, send_via,
			created_by_id, created_by_name, created_at
		FROM lead_quotations
		WHERE lead_id = $1
		ORDER BY revision_number ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Quotation, 0)
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.LeadID, &q.RevisionNumber, &q.ItineraryContent, &q.TotalPrice, &q.Currency,
			&q.Note, &q.SendVia, &q.CreatedByID, &q.CreatedByName, &q.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (r *Repository) ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]FollowUp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, channel, outcome, summary, next_follow_up_at, created_by_id, created_by_name, created_at
		FROM lead_follow_ups
		WHERE lead_id = $1
		ORDER BY created_at ASC, id
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]FollowUp, 0)
	for rows.Next() {
		var f FollowUp
		var channel string
		if err := rows.Scan(&f.ID, &f.LeadID, &channel, &f.Outcome, &f.Summary, &f.NextFollowUpAt,
			&f.CreatedByID, &f.CreatedByName, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Channel = domain.Channel(channel)
		items = append(items, f)
	}
	return items, rows.Err()
}

// FlagOverdue raises isOverdue on open leads whose next action is due and
// lowers it everywhere else. Rows already in the right state are untouched,
// so repeated sweeps change nothing.
func (r *Repository) FlagOverdue(ctx context.Context, now time.Time) (OverdueResult, error) {
	var result OverdueResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		flagged, err := tx.Exec(ctx, `
			UPDATE leads SET is_overdue = true
			WHERE status = 'open' AND next_action_due_at IS NOT NULL
				AND next_action_due_at < $1 AND is_overdue = false
		`, now)
		if err != nil {
			return err
		}
		cleared, err := tx.Exec(ctx, `
			UPDATE leads SET is_overdue = false
			WHERE is_overdue = true
				AND (status <> 'open' OR next_action_due_at IS NULL OR next_action_due_at >= $1)
		`, now)
		if err != nil {
			return err
		}
		result = OverdueResult{Flagged: int(flagged.RowsAffected()), Cleared: int(cleared.RowsAffected())}
		return nil
	})
	return result, err
}

// GetEngagement reads an engagement snapshot without locking it.
func (r *Repository) GetEngagement(ctx context.Context, id uuid.UUID) (Engagement, error) {
	return getEngagement(ctx, r.pool, id, false)
}

const engagementColumns = `id, agent_id, agent_name, destination_code, destination_name,
	spoc_name, spoc_email, spoc_mobile, lead_id, created_at`

func getEngagement(ctx context.Context, q db.Querier, id uuid.UUID, forUpdate bool) (Engagement, error) {
	query := "SELECT " + engagementColumns + " FROM engagements WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var e Engagement
	err := q.QueryRow(ctx, query, id).Scan(&e.ID, &e.AgentID, &e.AgentName, &e.DestinationCode, &e.DestinationName,
		&e.SpocName, &e.SpocEmail, &e.SpocMobile, &e.LeadID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Engagement{}, ErrEngagementNotFound
	}
	return e, err
}

var _ Store = (*Repository)(nil)
