package handlers

import (
	"net/http"

	"crm-backend/pkg/common"
	pkgerrors "crm-backend/pkg/errors"

	"go.uber.org/zap"
)

// respondAppError maps an application error onto the HTTP surface.
// Unclassified errors become opaque 500s; their detail stays in the
// log.
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= 500 {
			logger.Error("request failed", zap.Error(err))
		}
		common.RespondError(w, status, string(appErr.Type), appErr.Message)
		return
	}

	logger.Error("request failed", zap.Error(err))
	common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
