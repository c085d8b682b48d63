package linkpreview

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

const CodePreviewFailed = "LINK_PREVIEW_FAILED"

type Handler struct {
	fetcher *Fetcher
	logger  *zap.SugaredLogger
}

func NewHandler(fetcher *Fetcher, logger *zap.SugaredLogger) *Handler {
	return &Handler{fetcher: fetcher, logger: logger}
}

type previewRequest struct {
	URL string `json:"url" validate:"required,url,max=2048"`
}

// Preview serves POST /link/preview. Fetch failures are reported to the
// client as a 400 with LINK_PREVIEW_FAILED.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := response.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	p, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		h.logger.Infow("link preview failed", "url", req.URL, "err", err)
		response.Error(w, h.logger, apperror.External(CodePreviewFailed, "could not fetch link preview", err))
		return
	}
	response.OK(w, p)
}
