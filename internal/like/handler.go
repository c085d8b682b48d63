package like

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

type Handler struct {
	svc    *LikeService
	logger *zap.SugaredLogger
}

func NewHandler(svc *LikeService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type toggleResponse struct {
	IsLiked bool `json:"isLiked"`
}

// Toggle serves POST /like/{type}/{id}.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	target, err := ParseTarget(r.PathValue("type"))
	if err != nil {
		response.Error(w, h.logger, apperror.Validation(err.Error()))
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.Error(w, h.logger, apperror.Validation("id must be a number"))
		return
	}
	liked, err := h.svc.Toggle(r.Context(), auth.AccountID(r.Context()), target, id)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, toggleResponse{IsLiked: liked})
}
