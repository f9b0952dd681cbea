package handler

import (
	"time"

	"travel_leads_backend/internal/leads/assignment"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/followups"
	"travel_leads_backend/internal/leads/management"
	"travel_leads_backend/internal/leads/origination"
	"travel_leads_backend/internal/leads/overdue"
	"travel_leads_backend/internal/leads/quotations"
	"travel_leads_backend/internal/leads/remarks"
	"travel_leads_backend/internal/leads/stages"
	"travel_leads_backend/internal/leads/transport"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/httpkit"
	"travel_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Services groups the vertical slices the handler delegates to.
type Services struct {
	Management  *management.Service
	Origination *origination.Service
	Stages      *stages.Service
	Quotations  *quotations.Service
	FollowUps   *followups.Service
	Assignment  *assignment.Service
	Remarks     *remarks.Service
	Overdue     *overdue.Sweeper
}

type Handler struct {
	svc Services
	val *validator.Validator
}

func New(svc Services, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/from-engagement/:engagementId", h.CreateFromEngagement)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/timeline", h.Timeline)
	rg.POST("/:id/stage", h.Transition)
	rg.POST("/:id/reopen", h.Reopen)
	rg.POST("/:id/remarks", h.AddRemark)
	rg.GET("/:id/quotations", h.ListQuotations)
	rg.POST("/:id/quotations", h.CreateQuotation)
	rg.GET("/:id/follow-ups", h.ListFollowUps)
	rg.POST("/:id/follow-ups", h.LogFollowUp)
	rg.PUT("/:id/assign", h.Assign)
}

// RegisterAdminRoutes mounts routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/overdue-sweep", h.RunOverdueSweep)
}

// actorFrom turns the authenticated identity into the acting user.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.Actor{}, false
	}
	actor := domain.Actor{ID: id.UserID(), Email: id.Email(), Name: id.Name()}
	switch {
	case id.HasRole(httpkit.RoleAdmin):
		actor.Role = domain.RoleAdmin
	case len(id.Roles()) > 0:
		actor.Role = id.Roles()[0]
	}
	return actor, true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return uuid.UUID{}, false
	}
	return id, true
}

// bindJSON decodes and validates the body, writing the error response itself.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return false
	}
	return !httpkit.HandleError(c, h.val.Struct(req))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.Management.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.svc.Origination.CreateManual(c.Request.Context(), origination.ManualInput{
		Agent:       origination.Agent{ID: req.Agent.ID, Name: req.Agent.Name},
		Spoc:        origination.Spoc{Name: req.Spoc.Name, Email: req.Spoc.Email, Mobile: req.Spoc.Mobile},
		Destination: origination.Destination{Code: req.Destination.Code, Name: req.Destination.Name},
	}, toAssignee(req.Assignee), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, management.ToLeadResponse(lead))
}

func (h *Handler) CreateFromEngagement(c *gin.Context) {
	engagementID, ok := parseID(c, "engagementId")
	if !ok {
		return
	}
	var req transport.CreateFromEngagementRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.svc.Origination.CreateFromEngagement(c.Request.Context(), engagementID, toAssignee(req.Assignee), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, management.ToLeadResponse(lead))
}

func toAssignee(req *transport.AssigneeRequest) *origination.Assignee {
	if req == nil {
		return nil
	}
	return &origination.Assignee{ID: req.ID, Name: req.Name, Email: req.Email}
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lead, err := h.svc.Management.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Timeline(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.Management.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.svc.Stages.Transition(c.Request.Context(), id, domain.Stage(req.Stage), req.Remark, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) Reopen(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.ReopenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.svc.Stages.Reopen(c.Request.Context(), id, req.Reason, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) AddRemark(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.AddRemarkRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	event, err := h.svc.Remarks.AddRemark(c.Request.Context(), id, req.Remark, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, management.ToTimelineEventResponse(event))
}

func (h *Handler) ListQuotations(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.Management.Quotations(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) CreateQuotation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.CreateQuotationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	q, err := h.svc.Quotations.CreateRevision(c.Request.Context(), id, quotations.CreateRevisionInput{
		ItineraryContent: req.ItineraryContent,
		TotalPrice:       req.TotalPrice,
		Currency:         req.Currency,
		Note:             req.Note,
		SendVia:          req.SendVia,
	}, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, management.ToQuotationResponse(q))
}

func (h *Handler) ListFollowUps(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.Management.FollowUps(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) LogFollowUp(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.LogFollowUpRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.FollowUps.LogFollowUp(c.Request.Context(), id, followups.LogFollowUpInput{
		Channel:        req.Channel,
		Outcome:        req.Outcome,
		Summary:        req.Summary,
		NextFollowUpAt: req.NextFollowUpAt,
	}, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.LogFollowUpResponse{
		FollowUp: management.ToFollowUpResponse(result.FollowUp),
		Lead:     management.ToLeadResponse(result.Lead),
	})
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.AssignLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.svc.Assignment.Assign(c.Request.Context(), id, assignment.Owner{
		ID:    req.Assignee.ID,
		Name:  req.Assignee.Name,
		Email: req.Assignee.Email,
	}, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) RunOverdueSweep(c *gin.Context) {
	result, err := h.svc.Overdue.Sweep(c.Request.Context(), time.Now())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.OverdueSweepResponse{Flagged: result.Flagged, Cleared: result.Cleared})
}
