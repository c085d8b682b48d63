package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/lifecycle"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
)

// Error codes returned to clients.
const (
	CodeEmailDuplicated      = "EMAIL_DUPLICATED"
	CodeNicknameDuplicated   = "NICKNAME_DUPLICATED"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeDeletionPending      = "ACCOUNT_DELETION_PENDING"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeDeletionScheduled    = "DELETION_ALREADY_SCHEDULED"
	CodeDeletionNotScheduled = "DELETION_NOT_SCHEDULED"
	CodeAccountAnonymized    = "ACCOUNT_ANONYMIZED"
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the account persistence used by the service (see repo.AccountRepo).
type Store interface {
	Create(ctx context.Context, a *entity.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetByGithubID(ctx context.Context, githubID int64) (*entity.Account, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	ExistsNickname(ctx context.Context, nickname string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, nickname, name, avatarURL string) error
	SetDeletedAt(ctx context.Context, id int64, deletedAt time.Time) (bool, error)
	ClearDeletedAt(ctx context.Context, id int64) (bool, error)
	LinkGithub(ctx context.Context, id, githubID int64, token string) (bool, error)
}

// TokenIssuer is the part of auth.TokenService the account flows need.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, sub auth.Subject) (auth.Tokens, error)
	RevokeAll(ctx context.Context, accountID int64) error
}

// AccountService orchestrates registration, authentication and the account lifecycle.
type AccountService struct {
	store     Store
	tokens    TokenIssuer
	hasher    PasswordHasher
	graceDays int
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewAccountService(store Store, tokens TokenIssuer, hasher PasswordHasher, graceDays int, logger *zap.SugaredLogger) *AccountService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if graceDays <= 0 {
		graceDays = lifecycle.DefaultGraceDays
	}
	return &AccountService{store: store, tokens: tokens, hasher: hasher, graceDays: graceDays, logger: logger, now: time.Now}
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Nickname string `json:"nickname" validate:"required,min=2,max=30"`
	Name     string `json:"name" validate:"max=50"`
}

// LoginResult is returned by password and GitHub login.
type LoginResult struct {
	Tokens  auth.Tokens    `json:"tokens"`
	Account entity.Profile `json:"account"`
}

// Register creates an enabled account with no deletion scheduled.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*entity.Account, error) {
	email := strings.TrimSpace(in.Email)
	nickname := strings.TrimSpace(in.Nickname)
	if err := s.ensureUnique(ctx, email, nickname); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &entity.Account{
		Email:        email,
		PasswordHash: hash,
		Nickname:     nickname,
		Name:         strings.TrimSpace(in.Name),
		Role:         entity.RoleUser,
		Enabled:      true,
	}
	if _, err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infow("account registered", "account_id", a.ID)
	return a, nil
}

func (s *AccountService) ensureUnique(ctx context.Context, email, nickname string) error {
	taken, err := s.store.ExistsEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return apperror.BusinessRule(CodeEmailDuplicated, "email already in use")
	}
	taken, err = s.store.ExistsNickname(ctx, nickname)
	if err != nil {
		return err
	}
	if taken {
		return apperror.BusinessRule(CodeNicknameDuplicated, "nickname already in use")
	}
	return nil
}

// Authorize maps the lifecycle login decision onto a client error.
func (s *AccountService) Authorize(a entity.Account) error {
	switch lifecycle.DecideLogin(a, s.now()) {
	case lifecycle.Allow:
		return nil
	case lifecycle.RejectDeletedPending:
		return apperror.BusinessRule(CodeDeletionPending, "account deletion is scheduled; restore the account to log in")
	default:
		return apperror.BusinessRule(CodeAccountDisabled, "account is disabled")
	}
}

// Login authenticates by email and password and issues tokens.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	a, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(*a); err != nil {
		return nil, err
	}
	return s.IssueFor(ctx, *a)
}

// IssueFor issues a token pair for an already authorized account.
func (s *AccountService) IssueFor(ctx context.Context, a entity.Account) (*LoginResult, error) {
	tokens, err := s.tokens.IssueTokens(ctx, subjectOf(a))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: tokens, Account: a.Profile()}, nil
}

func (s *AccountService) verifyCredentials(ctx context.Context, email, password string) (*entity.Account, error) {
	a, err := s.store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// avoid account enumeration
			return nil, apperror.BusinessRule(CodeInvalidCredentials, "invalid email or password")
		}
		return nil, err
	}
	if a.PasswordHash == "" || !s.hasher.Verify(a.PasswordHash, password) {
		return nil, apperror.BusinessRule(CodeInvalidCredentials, "invalid email or password")
	}
	return a, nil
}

// LoadSubject backs refresh token rotation: the account must still be allowed to log in.
func (s *AccountService) LoadSubject(ctx context.Context, accountID int64) (auth.Subject, error) {
	a, err := s.get(ctx, accountID)
	if err != nil {
		return auth.Subject{}, err
	}
	if err := s.Authorize(*a); err != nil {
		return auth.Subject{}, err
	}
	return subjectOf(*a), nil
}

func subjectOf(a entity.Account) auth.Subject {
	return auth.Subject{AccountID: a.ID, Nickname: a.Nickname, Role: a.Role}
}

func (s *AccountService) get(ctx context.Context, id int64) (*entity.Account, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(CodeAccountNotFound, "account not found")
		}
		return nil, err
	}
	return a, nil
}

// Me returns the profile of the caller.
func (s *AccountService) Me(ctx context.Context, id int64) (entity.Profile, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return entity.Profile{}, err
	}
	if a.IsDeleted {
		return entity.Profile{}, apperror.NotFound(CodeAccountNotFound, "account not found")
	}
	return a.Profile(), nil
}

// UpdateProfileInput is the editable part of a profile.
type UpdateProfileInput struct {
	Nickname  string `json:"nickname" validate:"required,min=2,max=30"`
	Name      string `json:"name" validate:"max=50"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url,max=500"`
}

func (s *AccountService) UpdateProfile(ctx context.Context, id int64, in UpdateProfileInput) (entity.Profile, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return entity.Profile{}, err
	}
	if a.IsDeleted {
		return entity.Profile{}, apperror.BusinessRule(CodeAccountAnonymized, "account was deleted")
	}
	nickname := strings.TrimSpace(in.Nickname)
	if nickname != a.Nickname {
		taken, err := s.store.ExistsNickname(ctx, nickname)
		if err != nil {
			return entity.Profile{}, err
		}
		if taken {
			return entity.Profile{}, apperror.BusinessRule(CodeNicknameDuplicated, "nickname already in use")
		}
	}
	if err := s.store.UpdateProfile(ctx, id, nickname, strings.TrimSpace(in.Name), in.AvatarURL); err != nil {
		return entity.Profile{}, err
	}
	a.Nickname, a.Name, a.AvatarURL = nickname, strings.TrimSpace(in.Name), in.AvatarURL
	return a.Profile(), nil
}

// RequestDeletion schedules anonymization after the grace window and ends all sessions.
func (s *AccountService) RequestDeletion(ctx context.Context, id int64) (time.Time, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	deletedAt, err := lifecycle.ScheduleDeletion(*a, s.now(), s.graceDays)
	if err != nil {
		return time.Time{}, lifecycleError(err)
	}
	ok, err := s.store.SetDeletedAt(ctx, id, deletedAt)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, apperror.BusinessRule(CodeAccountAnonymized, "account was deleted")
	}
	if err := s.tokens.RevokeAll(ctx, id); err != nil {
		s.logger.Warnw("revoke sessions after deletion request failed", "account_id", id, "err", err)
	}
	s.logger.Infow("account deletion scheduled", "account_id", id, "deleted_at", deletedAt)
	return deletedAt, nil
}

// RestoreInput carries credentials: a pending account cannot log in, so
// restoring proves ownership with the password instead of a token.
type RestoreInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Restore cancels a scheduled deletion and logs the account in.
func (s *AccountService) Restore(ctx context.Context, in RestoreInput) (*LoginResult, error) {
	a, err := s.verifyCredentials(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	restored, err := lifecycle.Restore(*a)
	if err != nil {
		return nil, lifecycleError(err)
	}
	ok, err := s.store.ClearDeletedAt(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.BusinessRule(CodeAccountAnonymized, "account was deleted")
	}
	s.logger.Infow("account restored", "account_id", a.ID)
	if err := s.Authorize(restored); err != nil {
		return nil, err
	}
	return s.IssueFor(ctx, restored)
}

// GithubIdentity is the subset of a GitHub user needed to sign in.
type GithubIdentity struct {
	ID        int64
	Login     string
	Email     string
	Name      string
	AvatarURL string
}

// UpsertGithub finds the account linked to a GitHub identity, links an
// existing account with the same email, or registers a new one.
func (s *AccountService) UpsertGithub(ctx context.Context, gh GithubIdentity, token string) (*entity.Account, error) {
	a, err := s.store.GetByGithubID(ctx, gh.ID)
	switch {
	case err == nil:
		return s.linkGithub(ctx, a, gh.ID, token)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	email := gh.Email
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, gh.Login)
	}
	a, err = s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.linkGithub(ctx, a, gh.ID, token)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	nickname, err := s.freeNickname(ctx, gh.Login)
	if err != nil {
		return nil, err
	}
	// GitHub accounts get an unusable random password
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(base64.RawURLEncoding.EncodeToString(secret))
	if err != nil {
		return nil, err
	}
	id := gh.ID
	a = &entity.Account{
		Email:        email,
		PasswordHash: hash,
		Nickname:     nickname,
		Name:         gh.Name,
		AvatarURL:    gh.AvatarURL,
		Role:         entity.RoleUser,
		GithubID:     &id,
		GithubToken:  &token,
		Enabled:      true,
	}
	if _, err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infow("account registered via github", "account_id", a.ID, "github_id", gh.ID)
	return a, nil
}

// linkGithub refreshes the stored token. An anonymized account is never
// re-linked.
func (s *AccountService) linkGithub(ctx context.Context, a *entity.Account, githubID int64, token string) (*entity.Account, error) {
	ok, err := s.store.LinkGithub(ctx, a.ID, githubID, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.BusinessRule(CodeAccountDisabled, "account is disabled")
	}
	return a, nil
}

func (s *AccountService) freeNickname(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 1; i <= 20; i++ {
		taken, err := s.store.ExistsNickname(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return fmt.Sprintf("%s_%d", base, s.now().UnixNano()%100000), nil
}

func lifecycleError(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrAlreadyScheduled):
		return apperror.BusinessRule(CodeDeletionScheduled, "account deletion is already scheduled")
	case errors.Is(err, lifecycle.ErrNotScheduled):
		return apperror.BusinessRule(CodeDeletionNotScheduled, "account deletion is not scheduled")
	case errors.Is(err, lifecycle.ErrAlreadyAnonymized):
		return apperror.BusinessRule(CodeAccountAnonymized, "account was deleted")
	default:
		return err
	}
}
