package handlers

import (
	"net/http"

	"dress-rental/internal/models"
	"dress-rental/internal/services"
	"dress-rental/pkg/utils"
)

type ActivityLogHandler struct {
	Service *services.ActivityLogService
}

func NewActivityLogHandler(s *services.ActivityLogService) *ActivityLogHandler {
	return &ActivityLogHandler{Service: s}
}

// ListActivityLogs returns newest entries first, optionally for ?user_id=
func (h *ActivityLogHandler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		utils.Error(w, err)
		return
	}
	userID, err := queryInt(r, "user_id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var logs []*models.ActivityLog
	if userID > 0 {
		logs, err = h.Service.ListByUser(r.Context(), userID, limit)
	} else {
		logs, err = h.Service.List(r.Context(), limit)
	}
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}
