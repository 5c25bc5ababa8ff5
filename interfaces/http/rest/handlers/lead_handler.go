package handlers

import (
	"encoding/json"
	"net/http"

	"crm-backend/application/ports"
	"crm-backend/application/queries"
	querybus "crm-backend/application/queries/bus"
	"crm-backend/application/services"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/pkg/auth"
	"crm-backend/pkg/common"
	"crm-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LeadHandler exposes lead management and delayed-status operations
// over REST
type LeadHandler struct {
	leads      ports.LeadRepository
	reconciler *services.Reconciler
	queryBus   *querybus.QueryBus
	clock      ports.Clock
	domainCfg  *domaincfg.DomainConfig
	logger     *zap.Logger
}

// NewLeadHandler creates the lead handler
func NewLeadHandler(
	leads ports.LeadRepository,
	reconciler *services.Reconciler,
	queryBus *querybus.QueryBus,
	clock ports.Clock,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *LeadHandler {
	return &LeadHandler{
		leads:      leads,
		reconciler: reconciler,
		queryBus:   queryBus,
		clock:      clock,
		domainCfg:  domainCfg,
		logger:     logger,
	}
}

// CreateLeadRequest is the POST /leads body
type CreateLeadRequest struct {
	Name string   `json:"lead_name" validate:"required"`
	Team []string `json:"team"`
}

// LeadView is the read model for a lead
type LeadView struct {
	ID          string   `json:"name"`
	Name        string   `json:"lead_name"`
	Owner       string   `json:"lead_owner"`
	Team        []string `json:"team"`
	Delayed     bool     `json:"delayed"`
	LastComment string   `json:"last_comment,omitempty"`
}

// CreateLead handles POST /leads
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	lead, err := entities.NewLead(req.Name, user.UserID, h.clock.Now())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	for _, member := range req.Team {
		lead.AddTeamMember(member)
	}

	if err := h.leads.Save(r.Context(), lead); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, toLeadView(lead))
}

// GetLead handles GET /leads/{leadID}
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	lead, err := h.leads.GetByID(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if !user.IsManager() && !lead.ReadableBy(user.UserID) {
		common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "not permitted to access this lead")
		return
	}

	common.RespondJSON(w, http.StatusOK, toLeadView(lead))
}

// ReconcileRequest is the POST /reconcile body
type ReconcileRequest struct {
	RefType string `json:"doctype" validate:"required"`
	RefID   string `json:"docname" validate:"required"`
	User    string `json:"user"`
}

// Reconcile handles POST /reconcile. Returns the pass outcome so
// clients can refresh their delayed badges from the response alone.
func (h *LeadHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	ref, err := valueobjects.NewDocRef(req.RefType, req.RefID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if !h.domainCfg.SupportsReconciliation(ref.Type()) {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "doctype does not track delayed status")
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), ref, services.ReconcileOptions{
		Actor: user,
		User:  req.User,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DelayedMapRequest is the POST /leads/delayed-map body
type DelayedMapRequest struct {
	RefType string   `json:"doctype"`
	RefIDs  []string `json:"names" validate:"required,min=1"`
}

// DelayedMap handles POST /leads/delayed-map. Resolves the delayed
// status of up to one page of leads in a single request.
func (h *LeadHandler) DelayedMap(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req DelayedMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if req.RefType == "" {
		req.RefType = domaincfg.RefTypeLead
	}

	result, err := h.queryBus.Ask(r.Context(), queries.DelayedMapQuery{
		RefType: req.RefType,
		RefIDs:  req.RefIDs,
		Actor:   user,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func toLeadView(lead *entities.Lead) *LeadView {
	return &LeadView{
		ID:          lead.ID(),
		Name:        lead.Name(),
		Owner:       lead.Owner(),
		Team:        lead.Team(),
		Delayed:     lead.Delayed(),
		LastComment: lead.LastComment(),
	}
}
