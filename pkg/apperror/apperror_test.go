package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"business rule", BusinessRule("COMMENT_DEPTH", "too deep"), http.StatusBadRequest, "COMMENT_DEPTH"},
		{"not found", NotFound("ACCOUNT_NOT_FOUND", "missing"), http.StatusBadRequest, "ACCOUNT_NOT_FOUND"},
		{"validation", Validation("email is required"), http.StatusBadRequest, CodeValidation},
		{"external", External("OAUTH_FAILED", "github", errors.New("timeout")), http.StatusBadRequest, "OAUTH_FAILED"},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized, CodeUnauthorized},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status())
			assert.Equal(t, tt.code, tt.err.Code())
		})
	}
}

func TestWrapKeepsCode(t *testing.T) {
	base := NotFound("BOARD_NOT_FOUND", "board not found")
	wrapped := Wrap(base, "load board")
	app := From(wrapped)
	assert.Equal(t, "BOARD_NOT_FOUND", app.Code())
	assert.Equal(t, "load board", app.Message())
	assert.True(t, errors.Is(wrapped, base))

	plain := From(fmt.Errorf("db down"))
	assert.Equal(t, CodeInternal, plain.Code())
	assert.Nil(t, Wrap(nil, "noop"))
}
