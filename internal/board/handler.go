package board

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

// Handler serves one board type; the router mounts one per prefix.
type Handler struct {
	svc    *BoardService
	t      boardtype.Type
	logger *zap.SugaredLogger
}

func NewHandler(svc *BoardService, t boardtype.Type, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, t: t, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	res, err := h.svc.List(r.Context(), h.t, page, size)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.Error(w, h.logger, apperror.Validation("id must be a number"))
		return
	}
	p, err := h.svc.Get(r.Context(), h.t, id)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	p, err := h.svc.Create(r.Context(), h.t, auth.AccountID(r.Context()), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.Created(w, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	p, err := h.svc.Update(r.Context(), h.t, auth.AccountID(r.Context()), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, p)
}

type deleteRequest struct {
	ID int64 `json:"id" validate:"required"`
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), h.t, auth.AccountID(r.Context()), req.ID); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, nil)
}
