package notification

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

type Handler struct {
	svc    *NotificationService
	logger *zap.SugaredLogger
}

func NewHandler(svc *NotificationService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var cursor int64
	if c := q.Get("cursor"); c != "" {
		v, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			response.Error(w, h.logger, apperror.Validation("cursor must be a number"))
			return
		}
		cursor = v
	}
	size, _ := strconv.Atoi(q.Get("size"))
	page, err := h.svc.List(r.Context(), auth.AccountID(r.Context()), cursor, size)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, page)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.Error(w, h.logger, apperror.Validation("id must be a number"))
		return
	}
	n, err := h.svc.MarkRead(r.Context(), auth.AccountID(r.Context()), id)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, n)
}
