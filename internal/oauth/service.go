package oauth

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
)

const (
	CodeOAuthFailed        = "OAUTH_FAILED"
	CodeOAuthNotConfigured = "OAUTH_NOT_CONFIGURED"
)

// Provider is implemented by GithubClient.
type Provider interface {
	Enabled() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, token *oauth2.Token) (GithubUser, error)
}

// Accounts is the part of account.AccountService used by sign in.
type Accounts interface {
	UpsertGithub(ctx context.Context, gh account.GithubIdentity, token string) (*entity.Account, error)
	Authorize(a entity.Account) error
	IssueFor(ctx context.Context, a entity.Account) (*account.LoginResult, error)
}

type Service struct {
	provider Provider
	accounts Accounts
	logger   *zap.SugaredLogger
}

func NewService(provider Provider, accounts Accounts, logger *zap.SugaredLogger) *Service {
	return &Service{provider: provider, accounts: accounts, logger: logger}
}

// Login completes the code flow. Provider failures become OAUTH_FAILED;
// lifecycle rejections (pending deletion, disabled) pass through unchanged.
func (s *Service) Login(ctx context.Context, code string) (*account.LoginResult, error) {
	if !s.provider.Enabled() {
		return nil, apperror.BusinessRule(CodeOAuthNotConfigured, "github login is not configured")
	}
	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.External(CodeOAuthFailed, "github token exchange failed", err)
	}
	gh, err := s.provider.FetchUser(ctx, token)
	if err != nil {
		return nil, apperror.External(CodeOAuthFailed, "github user lookup failed", err)
	}
	a, err := s.accounts.UpsertGithub(ctx, account.GithubIdentity{
		ID:        gh.ID,
		Login:     gh.Login,
		Email:     gh.Email,
		Name:      gh.Name,
		AvatarURL: gh.AvatarURL,
	}, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Authorize(*a); err != nil {
		return nil, err
	}
	s.logger.Infow("github login", "account_id", a.ID, "github_id", gh.ID)
	return s.accounts.IssueFor(ctx, *a)
}
