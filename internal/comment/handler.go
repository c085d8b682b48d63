package comment

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

type Handler struct {
	svc    *CommentService
	logger *zap.SugaredLogger
}

func NewHandler(svc *CommentService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Thread serves GET /api/comments/{boardType}/{boardId}?cursor&size.
func (h *Handler) Thread(w http.ResponseWriter, r *http.Request) {
	boardID, err := strconv.ParseInt(r.PathValue("boardId"), 10, 64)
	if err != nil {
		response.Error(w, h.logger, apperror.Validation("boardId must be a number"))
		return
	}
	q := r.URL.Query()
	var cursor int64
	if c := q.Get("cursor"); c != "" {
		if cursor, err = strconv.ParseInt(c, 10, 64); err != nil || cursor < 0 {
			response.Error(w, h.logger, apperror.Validation("cursor must be a positive number"))
			return
		}
	}
	size, _ := strconv.Atoi(q.Get("size"))
	th, err := h.svc.Thread(r.Context(), r.PathValue("boardType"), boardID, cursor, size)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, th)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), auth.AccountID(r.Context()), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.Created(w, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.Error(w, h.logger, apperror.Validation("id must be a number"))
		return
	}
	var req UpdateInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	c, err := h.svc.Update(r.Context(), auth.AccountID(r.Context()), id, req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.Error(w, h.logger, apperror.Validation("id must be a number"))
		return
	}
	if err := h.svc.Delete(r.Context(), auth.AccountID(r.Context()), id); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, nil)
}
