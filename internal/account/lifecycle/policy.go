// Package lifecycle decides account state transitions. Nothing here touches
// storage: every function takes an account snapshot and the current time and
// returns a decision or a new value for the caller to persist.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
)

// DefaultGraceDays is used when no grace period is configured.
const DefaultGraceDays = 90

// PlaceholderName replaces the display name of an anonymized account.
const PlaceholderName = "Deleted User"

var (
	ErrAlreadyScheduled      = errors.New("deletion already scheduled")
	ErrNotScheduled          = errors.New("deletion not scheduled")
	ErrGraceWindowNotExpired = errors.New("grace window not expired")
	ErrAlreadyAnonymized     = errors.New("account already anonymized")
)

// LoginDecision is the outcome of DecideLogin.
type LoginDecision int

const (
	Allow LoginDecision = iota
	// RejectDeletedPending means the account can still be restored.
	RejectDeletedPending
	RejectDisabled
)

func (d LoginDecision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RejectDeletedPending:
		return "reject_deleted_pending"
	case RejectDisabled:
		return "reject_disabled"
	default:
		return fmt.Sprintf("LoginDecision(%d)", int(d))
	}
}

// DecideLogin allows login only for an enabled account with no deletion scheduled.
func DecideLogin(a entity.Account, now time.Time) LoginDecision {
	if a.IsDeleted || !a.Enabled {
		return RejectDisabled
	}
	if a.DeletedAt != nil {
		return RejectDeletedPending
	}
	return Allow
}

// ScheduleDeletion returns the new deleted_at. A schedule that already lapsed
// without being swept is replaced.
func ScheduleDeletion(a entity.Account, now time.Time, graceDays int) (time.Time, error) {
	if a.IsDeleted {
		return time.Time{}, ErrAlreadyAnonymized
	}
	if a.DeletedAt != nil && a.DeletedAt.After(now) {
		return time.Time{}, ErrAlreadyScheduled
	}
	if graceDays <= 0 {
		graceDays = DefaultGraceDays
	}
	return now.AddDate(0, 0, graceDays), nil
}

// Restore returns a copy of a with the deletion schedule cleared.
func Restore(a entity.Account) (entity.Account, error) {
	if a.IsDeleted {
		return a, ErrAlreadyAnonymized
	}
	if a.DeletedAt == nil {
		return a, ErrNotScheduled
	}
	a.DeletedAt = nil
	return a, nil
}

// Anonymized holds the placeholder values that overwrite personal data.
type Anonymized struct {
	Email string
	Name  string
}

// AnonymizedEmail is deterministic in the account id.
func AnonymizedEmail(id int64) string {
	return fmt.Sprintf("deleted_%d@deleted.com", id)
}

// Anonymize is valid once the grace window has elapsed (deleted_at <= now).
func Anonymize(a entity.Account, now time.Time) (Anonymized, error) {
	if a.IsDeleted {
		return Anonymized{}, ErrAlreadyAnonymized
	}
	if a.DeletedAt == nil {
		return Anonymized{}, ErrNotScheduled
	}
	if a.DeletedAt.After(now) {
		return Anonymized{}, ErrGraceWindowNotExpired
	}
	return Anonymized{Email: AnonymizedEmail(a.ID), Name: PlaceholderName}, nil
}

// Apply returns the terminal account value: placeholders written, soft
// deleted, disabled and unlinked from GitHub.
func (z Anonymized) Apply(a entity.Account) entity.Account {
	a.Email = z.Email
	a.Name = z.Name
	a.IsDeleted = true
	a.Enabled = false
	a.GithubID = nil
	a.GithubToken = nil
	return a
}
