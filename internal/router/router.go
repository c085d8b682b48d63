package router

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/board"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/like"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/linkpreview"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/oauth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

type requestIDKey struct{}

// RequestID returns the id assigned by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a KSUID, and
// echoes it on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = utilities.NewKSUID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// LoggingMiddleware logs every request with its id. 5xx responses are logged
// at warn level, everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets the security headers for a JSON API.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer-when-downgrade")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// API responses never embed anything
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps carries every handler the router mounts.
type Deps struct {
	Logger       *zap.SugaredLogger
	Tokens       *auth.TokenService
	LoadSubject  auth.SubjectLoader
	Auth         *auth.Handler
	Accounts     *account.Handler
	OAuth        *oauth.Handler
	Boards       map[boardtype.Type]*board.Handler
	Comments     *comment.Handler
	Likes        *like.Handler
	Notification *notification.Handler
	LinkPreview  *linkpreview.Handler
}

// boardPrefix maps a board type to its URL prefix.
func boardPrefix(t boardtype.Type) string {
	switch t {
	case boardtype.Code:
		return "/codeboard"
	default:
		return "/freeboard"
	}
}

// RegisterRoutes mounts every endpoint on a ServeMux using Go 1.22 method
// and wildcard patterns.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	protect := auth.Require(d.Tokens, d.Logger)
	private := func(h http.HandlerFunc) http.Handler { return protect(h) }
	// writes also re-check the account lifecycle
	protectActive := auth.RequireActive(d.Tokens, d.LoadSubject, d.Logger)
	active := func(h http.HandlerFunc) http.Handler { return protectActive(h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// accounts
	mux.HandleFunc("POST /api/accounts/signup", d.Accounts.Signup)
	mux.HandleFunc("POST /api/accounts/login", d.Accounts.Login)
	mux.HandleFunc("POST /api/accounts/restore", d.Accounts.Restore)
	mux.Handle("GET /api/accounts/me", private(d.Accounts.Me))
	mux.Handle("PUT /api/accounts/me", active(d.Accounts.UpdateMe))
	mux.Handle("DELETE /api/accounts/me", private(d.Accounts.RequestDeletion))

	// tokens
	mux.HandleFunc("POST /api/auth/refresh", d.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", d.Auth.Logout)
	mux.HandleFunc("GET /api/auth/jwks", d.Auth.JWKS)

	// github
	mux.HandleFunc("GET /api/oauth/github", d.OAuth.Start)
	mux.HandleFunc("GET /api/oauth/github/callback", d.OAuth.Callback)

	// boards
	for _, t := range boardtype.All {
		h, ok := d.Boards[t]
		if !ok {
			continue
		}
		p := boardPrefix(t)
		mux.HandleFunc("GET "+p+"/list", h.List)
		mux.HandleFunc("GET "+p+"/{id}", h.Get)
		mux.Handle("POST "+p, active(h.Create))
		mux.Handle("PUT "+p, active(h.Update))
		mux.Handle("DELETE "+p, active(h.Delete))
	}

	// comments
	mux.HandleFunc("GET /api/comments/{boardType}/{boardId}", d.Comments.Thread)
	mux.Handle("POST /api/comments", active(d.Comments.Create))
	mux.Handle("PUT /api/comments/{id}", active(d.Comments.Update))
	mux.Handle("DELETE /api/comments/{id}", active(d.Comments.Delete))

	mux.Handle("POST /like/{type}/{id}", active(d.Likes.Toggle))

	mux.Handle("GET /api/notifications", private(d.Notification.List))
	mux.Handle("POST /api/notifications/{id}/read", private(d.Notification.MarkRead))

	mux.HandleFunc("POST /link/preview", d.LinkPreview.Preview)

	// request id outermost so the access log can see it
	return RequestIDMiddleware()(LoggingMiddleware(d.Logger)(SecurityHeadersMiddleware()(mux)))
}
