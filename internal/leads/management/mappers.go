package management

import (
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/transport"
)

// ToLeadResponse converts a repository Lead to a transport LeadResponse.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	history := make([]transport.StageHistoryResponse, len(lead.StageHistory))
	for i, entry := range lead.StageHistory {
		history[i] = transport.StageHistoryResponse{
			Stage:     string(entry.Stage),
			Remark:    entry.Remark,
			Tag:       entry.Tag,
			ChangedAt: entry.ChangedAt,
			ChangedBy: transport.ActorResponse{ID: entry.ChangedBy.ID, Email: entry.ChangedBy.Email, Name: entry.ChangedBy.Name},
		}
	}

	return transport.LeadResponse{
		ID:              lead.ID,
		LeadCode:        lead.LeadCode,
		Stage:           string(lead.Stage),
		Status:          string(lead.Status),
		Source:          lead.Source,
		AgentID:         lead.AgentID,
		AgentName:       lead.AgentName,
		DestinationCode: lead.DestinationCode,
		DestinationName: lead.DestinationName,
		Spoc: transport.ContactResponse{
			Name:   lead.SpocName,
			Email:  lead.SpocEmail,
			Mobile: lead.SpocMobile,
		},
		AssignedToID:    lead.AssignedToID,
		AssignedToName:  lead.AssignedToName,
		AssignedByID:    lead.AssignedByID,
		AssignedAt:      lead.AssignedAt,
		NextActionType:  lead.NextActionType,
		NextActionDueAt: lead.NextActionDueAt,
		IsOverdue:       lead.IsOverdue,
		StageHistory:    history,
		LastRevision:    lead.LastRevision,
		EngagementID:    lead.EngagementID,
		CreatedByName:   lead.CreatedByName,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

func ToTimelineEventResponse(e repository.TimelineEvent) transport.TimelineEventResponse {
	return transport.TimelineEventResponse{
		ID:          e.ID,
		Type:        e.EventType,
		Title:       e.Title,
		Description: e.Description,
		Metadata:    e.Metadata,
		CreatedBy: transport.ActorResponse{
			ID:    e.CreatedByID,
			Email: e.CreatedByEmail,
			Name:  e.CreatedByName,
		},
		CreatedAt: e.CreatedAt,
	}
}

func ToQuotationResponse(q repository.Quotation) transport.QuotationResponse {
	sendVia := q.SendVia
	if sendVia == nil {
		sendVia = []string{}
	}
	return transport.QuotationResponse{
		ID:               q.ID,
		LeadID:           q.LeadID,
		RevisionNumber:   q.RevisionNumber,
		ItineraryContent: q.ItineraryContent,
		TotalPrice:       q.TotalPrice,
		Currency:         q.Currency,
		Note:             q.Note,
		SendVia:          sendVia,
		CreatedByName:    q.CreatedByName,
		CreatedAt:        q.CreatedAt,
	}
}

func ToFollowUpResponse(f repository.FollowUp) transport.FollowUpResponse {
	return transport.FollowUpResponse{
		ID:             f.ID,
		LeadID:         f.LeadID,
		Channel:        string(f.Channel),
		Outcome:        f.Outcome,
		Summary:        f.Summary,
		NextFollowUpAt: f.NextFollowUpAt,
		CreatedByName:  f.CreatedByName,
		CreatedAt:      f.CreatedAt,
	}
}
