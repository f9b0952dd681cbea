package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"travel_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// MemoryStore keeps leads in process memory. A transaction holds the store
// lock for its whole duration and works on a copy of the state that replaces
// the live state only on commit. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu     sync.Mutex
	state  memState
	faults map[string]error
}

type memState struct {
	leads       map[uuid.UUID]Lead
	timeline    map[uuid.UUID][]TimelineEvent
	quotations  map[uuid.UUID][]Quotation
	followUps   map[uuid.UUID][]FollowUp
	engagements map[uuid.UUID]Engagement
	seq         int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			leads:       make(map[uuid.UUID]Lead),
			timeline:    make(map[uuid.UUID][]TimelineEvent),
			quotations:  make(map[uuid.UUID][]Quotation),
			followUps:   make(map[uuid.UUID][]FollowUp),
			engagements: make(map[uuid.UUID]Engagement),
		},
		faults: make(map[string]error),
	}
}

// Tx operation names accepted by InjectFault.
const (
	OpInsertLead          = "InsertLead"
	OpUpdateLead          = "UpdateLead"
	OpInsertQuotation     = "InsertQuotation"
	OpInsertFollowUp      = "InsertFollowUp"
	OpInsertTimelineEvent = "InsertTimelineEvent"
	OpLinkEngagement      = "LinkEngagement"
)

// InjectFault makes the next call to op inside a transaction fail with err.
func (s *MemoryStore) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// PutEngagement seeds an engagement snapshot.
func (s *MemoryStore) PutEngagement(e Engagement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.state.engagements[e.ID] = e
}

// GetEngagement reads an engagement snapshot.
func (s *MemoryStore) GetEngagement(_ context.Context, id uuid.UUID) (Engagement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.engagements[id]
	if !ok {
		return Engagement{}, ErrEngagementNotFound
	}
	return e, nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) GetLead(_ context.Context, id uuid.UUID) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.state.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return cloneLead(lead), nil
}

func (s *MemoryStore) ListLeads(_ context.Context, params ListParams) ([]Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Lead, 0)
	for _, lead := range s.state.leads {
		if matchesList(lead, params) {
			matched = append(matched, cloneLead(lead))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	start := min(max(params.Offset, 0), total)
	end := min(start+limit, total)
	return matched[start:end], total, nil
}

func matchesList(lead Lead, params ListParams) bool {
	if params.Stage != nil && lead.Stage != *params.Stage {
		return false
	}
	if params.Status != nil && lead.Status != *params.Status {
		return false
	}
	if params.AssignedToID != nil && (lead.AssignedToID == nil || *lead.AssignedToID != *params.AssignedToID) {
		return false
	}
	if params.Overdue != nil && lead.IsOverdue != *params.Overdue {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(params.Search)); search != "" {
		haystack := strings.ToLower(strings.Join([]string{lead.LeadCode, lead.AgentName, lead.DestinationName, lead.SpocName}, " "))
		if !strings.Contains(haystack, search) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) ListTimeline(_ context.Context, leadID uuid.UUID) ([]TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := slices.Clone(s.state.timeline[leadID])
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].Seq < events[j].Seq
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	if events == nil {
		events = []TimelineEvent{}
	}
	return events, nil
}

func (s *MemoryStore) ListQuotations(_ context.Context, leadID uuid.UUID) ([]Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := slices.Clone(s.state.quotations[leadID])
	if items == nil {
		items = []Quotation{}
	}
	return items, nil
}

func (s *MemoryStore) ListFollowUps(_ context.Context, leadID uuid.UUID) ([]FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := slices.Clone(s.state.followUps[leadID])
	if items == nil {
		items = []FollowUp{}
	}
	return items, nil
}

func (s *MemoryStore) FlagOverdue(_ context.Context, now time.Time) (OverdueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result OverdueResult
	for id, lead := range s.state.leads {
		due := lead.Status == domain.StatusOpen && lead.NextActionDueAt != nil && lead.NextActionDueAt.Before(now)
		switch {
		case due && !lead.IsOverdue:
			lead.IsOverdue = true
			result.Flagged++
		case !due && lead.IsOverdue:
			lead.IsOverdue = false
			result.Cleared++
		default:
			continue
		}
		s.state.leads[id] = lead
	}
	return result, nil
}

func (st memState) clone() memState {
	return memState{
		leads:       maps.Clone(st.leads),
		timeline:    cloneChildren(st.timeline),
		quotations:  cloneChildren(st.quotations),
		followUps:   cloneChildren(st.followUps),
		engagements: maps.Clone(st.engagements),
		seq:         st.seq,
	}
}

func cloneChildren[T any](in map[uuid.UUID][]T) map[uuid.UUID][]T {
	out := make(map[uuid.UUID][]T, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

func cloneLead(l Lead) Lead {
	l.StageHistory = slices.Clone(l.StageHistory)
	return l
}

type memTx struct {
	store *MemoryStore
	state memState
}

// fault is read under the store lock already held by WithinTx.
func (t *memTx) fault(op string) error {
	if err, ok := t.store.faults[op]; ok {
		delete(t.store.faults, op)
		return err
	}
	return nil
}

func (t *memTx) GetLead(_ context.Context, id uuid.UUID) (Lead, error) {
	lead, ok := t.state.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return cloneLead(lead), nil
}

func (t *memTx) InsertLead(_ context.Context, lead Lead) error {
	if err := t.fault(OpInsertLead); err != nil {
		return err
	}
	lead.LastRevision = 0
	t.state.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (t *memTx) UpdateLead(_ context.Context, lead Lead) error {
	if err := t.fault(OpUpdateLead); err != nil {
		return err
	}
	current, ok := t.state.leads[lead.ID]
	if !ok {
		return ErrNotFound
	}
	lead.LastRevision = current.LastRevision
	t.state.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (t *memTx) NextRevisionNumber(_ context.Context, leadID uuid.UUID, at time.Time) (int, error) {
	lead, ok := t.state.leads[leadID]
	if !ok {
		return 0, ErrNotFound
	}
	lead.LastRevision++
	lead.UpdatedAt = at
	t.state.leads[leadID] = lead
	return lead.LastRevision, nil
}

func (t *memTx) InsertQuotation(_ context.Context, q Quotation) error {
	if err := t.fault(OpInsertQuotation); err != nil {
		return err
	}
	q.SendVia = slices.Clone(q.SendVia)
	t.state.quotations[q.LeadID] = append(t.state.quotations[q.LeadID], q)
	return nil
}

func (t *memTx) InsertFollowUp(_ context.Context, f FollowUp) error {
	if err := t.fault(OpInsertFollowUp); err != nil {
		return err
	}
	t.state.followUps[f.LeadID] = append(t.state.followUps[f.LeadID], f)
	return nil
}

func (t *memTx) InsertTimelineEvent(_ context.Context, e TimelineEvent) (TimelineEvent, error) {
	if err := t.fault(OpInsertTimelineEvent); err != nil {
		return TimelineEvent{}, err
	}
	t.state.seq++
	e.Seq = t.state.seq
	e.Metadata = maps.Clone(e.Metadata)
	t.state.timeline[e.LeadID] = append(t.state.timeline[e.LeadID], e)
	return e, nil
}

func (t *memTx) GetEngagement(_ context.Context, id uuid.UUID) (Engagement, error) {
	e, ok := t.state.engagements[id]
	if !ok {
		return Engagement{}, ErrEngagementNotFound
	}
	return e, nil
}

func (t *memTx) LinkEngagement(_ context.Context, engagementID, leadID uuid.UUID) error {
	if err := t.fault(OpLinkEngagement); err != nil {
		return err
	}
	e, ok := t.state.engagements[engagementID]
	if !ok {
		return ErrEngagementNotFound
	}
	if e.LeadID != nil {
		return ErrEngagementLinked
	}
	e.LeadID = &leadID
	t.state.engagements[engagementID] = e
	return nil
}

var _ Store = (*MemoryStore)(nil)
