package entity

import "time"

// Account represents a row in the `accounts` table.
type Account struct {
	ID           int64      `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Nickname     string     `db:"nickname"`
	Name         string     `db:"name"`
	AvatarURL    string     `db:"avatar_url"`
	Grade        int        `db:"grade"`
	Role         string     `db:"role"`
	GithubID     *int64     `db:"github_id"`
	GithubToken  *string    `db:"github_token"`
	IsDeleted    bool       `db:"is_deleted"`
	DeletedAt    *time.Time `db:"deleted_at"` // set when deletion is scheduled
	Enabled      bool       `db:"enabled"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// State is the lifecycle position of an account.
type State int

const (
	StateActive State = iota
	StatePendingDeletion
	StateAnonymized
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePendingDeletion:
		return "pending_deletion"
	case StateAnonymized:
		return "anonymized"
	default:
		return "unknown"
	}
}

// State derives the lifecycle state. IsDeleted wins over DeletedAt: an
// anonymized row keeps the deleted_at it was scheduled with.
func (a Account) State() State {
	switch {
	case a.IsDeleted:
		return StateAnonymized
	case a.DeletedAt != nil:
		return StatePendingDeletion
	default:
		return StateActive
	}
}

// Profile is the public projection returned by the API.
type Profile struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	Name         string     `json:"name"`
	AvatarURL    string     `json:"avatarUrl"`
	Grade        int        `json:"grade"`
	Role         string     `json:"role"`
	GithubLinked bool       `json:"githubLinked"`
	DeletedAt    *time.Time `json:"deletedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (a Account) Profile() Profile {
	return Profile{
		ID:           a.ID,
		Email:        a.Email,
		Nickname:     a.Nickname,
		Name:         a.Name,
		AvatarURL:    a.AvatarURL,
		Grade:        a.Grade,
		Role:         a.Role,
		GithubLinked: a.GithubID != nil,
		DeletedAt:    a.DeletedAt,
		CreatedAt:    a.CreatedAt,
	}
}
