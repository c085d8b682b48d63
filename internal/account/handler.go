package account

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *AccountService
	logger *zap.SugaredLogger
}

func NewHandler(svc *AccountService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// SignupResponse response body containing new account id.
type SignupResponse struct {
	ID int64 `json:"id"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	a, err := h.svc.Register(r.Context(), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.Created(w, SignupResponse{ID: a.ID})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Me(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, p)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), auth.AccountID(r.Context()), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, p)
}

type deletionResponse struct {
	DeletedAt time.Time `json:"deletedAt"`
}

// RequestDeletion schedules deletion of the caller's account.
func (h *Handler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	at, err := h.svc.RequestDeletion(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, deletionResponse{DeletedAt: at})
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreInput
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	res, err := h.svc.Restore(r.Context(), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, res)
}
