package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type pgTx struct {
	q pgx.Tx
}

func (t *pgTx) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	return getLead(ctx, t.q, id, true)
}

func (t *pgTx) InsertLead(ctx context.Context, lead Lead) error {
	history, err := marshalHistory(lead.StageHistory)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		INSERT INTO leads (
			id, lead_code, stage, status, source, agent_id, agent_name,
			destination_code, destination_name, spoc_name, spoc_email, spoc_mobile,
			assigned_to_id, assigned_to_name, assigned_to_email, assigned_by_id, assigned_at,
			next_action_type, next_action_due_at, is_overdue, stage_history, last_revision,
			engagement_id, created_by_id, created_by_name, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, 0, $22, $23, $24, $25, $26
		)
	`,
		lead.ID, lead.LeadCode, string(lead.Stage), string(lead.Status), lead.Source, lead.AgentID, lead.AgentName,
		lead.DestinationCode, lead.DestinationName, lead.SpocName, lead.SpocEmail, lead.SpocMobile,
		lead.AssignedToID, lead.AssignedToName, lead.AssignedToEmail, lead.AssignedByID, lead.AssignedAt,
		lead.NextActionType, lead.NextActionDueAt, lead.IsOverdue, history,
		lead.EngagementID, lead.CreatedByID, lead.CreatedByName, lead.CreatedAt, lead.UpdatedAt,
	)
	return err
}

func (t *pgTx) UpdateLead(ctx context.Context, lead Lead) error {
	history, err := marshalHistory(lead.StageHistory)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE leads SET
			stage = $2, status = $3,
			assigned_to_id = $4, assigned_to_name = $5, assigned_to_email = $6,
			assigned_by_id = $7, assigned_at = $8,
			next_action_type = $9, next_action_due_at = $10, is_overdue = $11,
			stage_history = $12, engagement_id = $13, updated_at = $14
		WHERE id = $1
	`,
		lead.ID, string(lead.Stage), string(lead.Status),
		lead.AssignedToID, lead.AssignedToName, lead.AssignedToEmail,
		lead.AssignedByID, lead.AssignedAt,
		lead.NextActionType, lead.NextActionDueAt, lead.IsOverdue,
		history, lead.EngagementID, lead.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) NextRevisionNumber(ctx context.Context, leadID uuid.UUID, at time.Time) (int, error) {
	var next int
	err := t.q.QueryRow(ctx, `
		UPDATE leads SET last_revision = last_revision + 1, updated_at = $2
		WHERE id = $1
		RETURNING last_revision
	`, leadID, at).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return next, err
}

func (t *pgTx) InsertQuotation(ctx context.Context, q Quotation) error {
	sendVia := q.SendVia
	if sendVia == nil {
		sendVia = []string{}
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO lead_quotations (
			id, lead_id, revision_number, itinerary_content, total_price, currency, note, send_via,
			created_by_id, created_by_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, q.ID, q.LeadID, q.RevisionNumber, q.ItineraryContent, q.TotalPrice, q.Currency, q.Note, sendVia,
		q.CreatedByID, q.CreatedByName, q.CreatedAt)
	return err
}

func (t *pgTx) InsertFollowUp(ctx context.Context, f FollowUp) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO lead_follow_ups (
			id, lead_id, channel, outcome, summary, next_follow_up_at, created_by_id, created_by_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, f.LeadID, string(f.Channel), f.Outcome, f.Summary, f.NextFollowUpAt, f.CreatedByID, f.CreatedByName, f.CreatedAt)
	return err
}

func (t *pgTx) InsertTimelineEvent(ctx context.Context, e TimelineEvent) (TimelineEvent, error) {
	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return TimelineEvent{}, fmt.Errorf("encode timeline metadata: %w", err)
	}
	// metadata is excluded from RETURNING: the caller already holds it as a Go value.
	err = t.q.QueryRow(ctx, `
		INSERT INTO lead_timeline_events (
			id, lead_id, event_type, title, description, metadata,
			created_by_id, created_by_email, created_by_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`, e.ID, e.LeadID, e.EventType, e.Title, e.Description, metadataJSON,
		e.CreatedByID, e.CreatedByEmail, e.CreatedByName, e.CreatedAt).Scan(&e.Seq)
	if err != nil {
		return TimelineEvent{}, err
	}
	return e, nil
}

func (t *pgTx) GetEngagement(ctx context.Context, id uuid.UUID) (Engagement, error) {
	return getEngagement(ctx, t.q, id, true)
}

func (t *pgTx) LinkEngagement(ctx context.Context, engagementID, leadID uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE engagements SET lead_id = $2, updated_at = now()
		WHERE id = $1 AND lead_id IS NULL
	`, engagementID, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEngagementLinked
	}
	return nil
}

func marshalHistory(history []StageHistoryEntry) ([]byte, error) {
	if history == nil {
		history = []StageHistoryEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode stage history: %w", err)
	}
	return data, nil
}
