package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

const CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"

type Handler struct {
	svc    *TokenService
	load   SubjectLoader
	logger *zap.SugaredLogger
}

func NewHandler(svc *TokenService, load SubjectLoader, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, load: load, logger: logger}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh rotates a refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	tokens, err := h.svc.Rotate(r.Context(), req.RefreshToken, h.load)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			err = apperror.New(http.StatusUnauthorized, CodeInvalidRefreshToken, "invalid refresh token", nil)
		}
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, tokens)
}

// Logout revokes the given refresh token. Unknown tokens still succeed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	if err := h.svc.Revoke(r.Context(), req.RefreshToken); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, nil)
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.svc.JWKS())
}
