// Package response writes the JSON envelope used by every endpoint:
// {code, message, data}.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
)

const (
	CodeSuccess    = "0000"
	MessageSuccess = "success"
)

// Envelope is the body of every response.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope with status 200.
func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Code: CodeSuccess, Message: MessageSuccess, Data: data})
}

// Created writes a success envelope with status 201.
func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Code: CodeSuccess, Message: MessageSuccess, Data: data})
}

// Error maps err onto the envelope. Server side failures are logged; client
// errors are only logged at debug level.
func Error(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	app := apperror.From(err)
	if logger != nil {
		if app.Status() >= http.StatusInternalServerError {
			logger.Errorw("request failed", "code", app.Code(), "err", err)
		} else {
			logger.Debugw("request rejected", "code", app.Code(), "err", err)
		}
	}
	WriteJSON(w, app.Status(), Envelope{Code: app.Code(), Message: app.Message(), Data: nil})
}

// DecodeAndValidate decodes a JSON body into dst and validates its struct tags.
// The first failing field becomes the message of a validation error.
func DecodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("invalid request body")
	}
	return Validate(dst)
}

// Validate runs struct validation on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperror.Validation(fieldMessage(fieldErrs[0]))
	}
	return apperror.Validation(err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid url", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
