package handlers

import (
	"encoding/json"
	"net/http"

	"crm-backend/application/commands"
	commandbus "crm-backend/application/commands/bus"
	"crm-backend/application/queries"
	querybus "crm-backend/application/queries/bus"
	"crm-backend/pkg/auth"
	"crm-backend/pkg/common"
	"crm-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommentHandler exposes comment operations over REST
type CommentHandler struct {
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewCommentHandler creates the comment handler
func NewCommentHandler(commandBus *commandbus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// CreateCommentRequest is the POST /comments body. Content is HTML as
// produced by the editor; mentions ride in span markup.
type CreateCommentRequest struct {
	RefType string `json:"reference_doctype" validate:"required"`
	RefID   string `json:"reference_name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// CreateComment handles POST /comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	commentID := uuid.New().String()
	cmd := commands.AddCommentCommand{
		CommentID: commentID,
		RefType:   req.RefType,
		RefID:     req.RefID,
		Content:   req.Content,
		Actor:     user,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{"name": commentID})
}

// ListComments handles GET /comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListCommentsQuery{
		RefType: r.URL.Query().Get("reference_doctype"),
		RefID:   r.URL.Query().Get("reference_name"),
		Actor:   user,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
