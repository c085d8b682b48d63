package oauth

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

const stateCookie = "oauth_state"

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Start redirects to GitHub with a fresh state nonce kept in a cookie.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.svc.provider.Enabled() {
		response.Error(w, h.logger, apperror.BusinessRule(CodeOAuthNotConfigured, "github login is not configured"))
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/oauth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.svc.provider.AuthURL(state), http.StatusFound)
}

// Callback checks the state and finishes the login.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		response.Error(w, h.logger, apperror.BusinessRule(CodeOAuthFailed, "github login was cancelled: "+e))
		return
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		response.Error(w, h.logger, apperror.BusinessRule(CodeOAuthFailed, "invalid oauth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/api/oauth", MaxAge: -1, HttpOnly: true})

	code := q.Get("code")
	if code == "" {
		response.Error(w, h.logger, apperror.Validation("code is required"))
		return
	}
	res, err := h.svc.Login(r.Context(), code)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.OK(w, res)
}
