package account

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, a *entity.Account) (int64, error) {
	args := m.Called(ctx, a)
	a.ID = args.Get(0).(int64)
	return a.ID, args.Error(1)
}

func (m *MockStore) account(args mock.Arguments) (*entity.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockStore) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	return m.account(m.Called(ctx, id))
}

func (m *MockStore) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return m.account(m.Called(ctx, email))
}

func (m *MockStore) GetByGithubID(ctx context.Context, githubID int64) (*entity.Account, error) {
	return m.account(m.Called(ctx, githubID))
}

func (m *MockStore) ExistsEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ExistsNickname(ctx context.Context, nickname string) (bool, error) {
	args := m.Called(ctx, nickname)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpdateProfile(ctx context.Context, id int64, nickname, name, avatarURL string) error {
	return m.Called(ctx, id, nickname, name, avatarURL).Error(0)
}

func (m *MockStore) SetDeletedAt(ctx context.Context, id int64, deletedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, deletedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ClearDeletedAt(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) LinkGithub(ctx context.Context, id, githubID int64, token string) (bool, error) {
	args := m.Called(ctx, id, githubID, token)
	return args.Bool(0), args.Error(1)
}

type fakeTokens struct {
	issued  []auth.Subject
	revoked []int64
}

func (f *fakeTokens) IssueTokens(ctx context.Context, sub auth.Subject) (auth.Tokens, error) {
	f.issued = append(f.issued, sub)
	return auth.Tokens{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}, nil
}

func (f *fakeTokens) RevokeAll(ctx context.Context, accountID int64) error {
	f.revoked = append(f.revoked, accountID)
	return nil
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService(store Store) (*AccountService, *fakeTokens) {
	tokens := &fakeTokens{}
	svc := NewAccountService(store, tokens, BcryptHasher{Cost: bcrypt.MinCost}, 90, zap.NewNop().Sugar())
	svc.now = func() time.Time { return fixedNow }
	return svc, tokens
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(pw)
	require.NoError(t, err)
	return h
}

func codeOf(err error) string {
	return apperror.From(err).Code()
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates enabled account", func(t *testing.T) {
		store := new(MockStore)
		store.On("ExistsEmail", ctx, "neo@example.com").Return(false, nil)
		store.On("ExistsNickname", ctx, "neo").Return(false, nil)
		store.On("Create", ctx, mock.MatchedBy(func(a *entity.Account) bool {
			return a.Enabled && !a.IsDeleted && a.DeletedAt == nil && a.PasswordHash != "secret-pw" && a.Role == entity.RoleUser
		})).Return(int64(5), nil)
		svc, _ := newTestService(store)

		a, err := svc.Register(ctx, RegisterInput{Email: " neo@example.com ", Password: "secret-pw", Nickname: "neo"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), a.ID)
		store.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := new(MockStore)
		store.On("ExistsEmail", ctx, "neo@example.com").Return(true, nil)
		svc, _ := newTestService(store)

		_, err := svc.Register(ctx, RegisterInput{Email: "neo@example.com", Password: "secret-pw", Nickname: "neo"})
		assert.Equal(t, CodeEmailDuplicated, codeOf(err))
	})

	t.Run("duplicate nickname", func(t *testing.T) {
		store := new(MockStore)
		store.On("ExistsEmail", ctx, "neo@example.com").Return(false, nil)
		store.On("ExistsNickname", ctx, "neo").Return(true, nil)
		svc, _ := newTestService(store)

		_, err := svc.Register(ctx, RegisterInput{Email: "neo@example.com", Password: "secret-pw", Nickname: "neo"})
		assert.Equal(t, CodeNicknameDuplicated, codeOf(err))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	pending := fixedNow.Add(48 * time.Hour)

	tests := []struct {
		name     string
		account  *entity.Account
		password string
		wantCode string
	}{
		{"allowed", &entity.Account{ID: 1, Nickname: "neo", Enabled: true}, "pw-123456", ""},
		{"wrong password", &entity.Account{ID: 1, Enabled: true}, "nope", CodeInvalidCredentials},
		{"pending deletion", &entity.Account{ID: 1, Enabled: true, DeletedAt: &pending}, "pw-123456", CodeDeletionPending},
		{"anonymized", &entity.Account{ID: 1, IsDeleted: true, DeletedAt: &pending}, "pw-123456", CodeAccountDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.account.PasswordHash = hashed(t, "pw-123456")
			store := new(MockStore)
			store.On("GetByEmail", ctx, "neo@example.com").Return(tt.account, nil)
			svc, tokens := newTestService(store)

			res, err := svc.Login(ctx, "neo@example.com", tt.password)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "access", res.Tokens.AccessToken)
				require.Len(t, tokens.issued, 1)
				assert.Equal(t, int64(1), tokens.issued[0].AccountID)
				return
			}
			assert.Equal(t, tt.wantCode, codeOf(err))
			assert.Empty(t, tokens.issued)
		})
	}

	t.Run("unknown email", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByEmail", ctx, "ghost@example.com").Return(nil, sql.ErrNoRows)
		svc, _ := newTestService(store)
		_, err := svc.Login(ctx, "ghost@example.com", "pw")
		assert.Equal(t, CodeInvalidCredentials, codeOf(err))
	})
}

func TestRequestDeletion(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules grace window and revokes sessions", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByID", ctx, int64(3)).Return(&entity.Account{ID: 3, Enabled: true}, nil)
		store.On("SetDeletedAt", ctx, int64(3), fixedNow.AddDate(0, 0, 90)).Return(true, nil)
		svc, tokens := newTestService(store)

		at, err := svc.RequestDeletion(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, fixedNow.AddDate(0, 0, 90), at)
		assert.Equal(t, []int64{3}, tokens.revoked)
		store.AssertExpectations(t)
	})

	t.Run("already scheduled", func(t *testing.T) {
		future := fixedNow.Add(time.Hour)
		store := new(MockStore)
		store.On("GetByID", ctx, int64(3)).Return(&entity.Account{ID: 3, Enabled: true, DeletedAt: &future}, nil)
		svc, _ := newTestService(store)

		_, err := svc.RequestDeletion(ctx, 3)
		assert.Equal(t, CodeDeletionScheduled, codeOf(err))
		store.AssertNotCalled(t, "SetDeletedAt", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing account", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByID", ctx, int64(3)).Return(nil, sql.ErrNoRows)
		svc, _ := newTestService(store)

		_, err := svc.RequestDeletion(ctx, 3)
		assert.Equal(t, CodeAccountNotFound, codeOf(err))
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	future := fixedNow.Add(24 * time.Hour)

	t.Run("clears schedule and logs in", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByEmail", ctx, "neo@example.com").
			Return(&entity.Account{ID: 8, Enabled: true, DeletedAt: &future, PasswordHash: hashed(t, "pw-123456")}, nil)
		store.On("ClearDeletedAt", ctx, int64(8)).Return(true, nil)
		svc, tokens := newTestService(store)

		res, err := svc.Restore(ctx, RestoreInput{Email: "neo@example.com", Password: "pw-123456"})
		require.NoError(t, err)
		assert.Nil(t, res.Account.DeletedAt)
		assert.Len(t, tokens.issued, 1)
	})

	t.Run("not scheduled", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByEmail", ctx, "neo@example.com").
			Return(&entity.Account{ID: 8, Enabled: true, PasswordHash: hashed(t, "pw-123456")}, nil)
		svc, _ := newTestService(store)

		_, err := svc.Restore(ctx, RestoreInput{Email: "neo@example.com", Password: "pw-123456"})
		assert.Equal(t, CodeDeletionNotScheduled, codeOf(err))
	})
}

func TestUpsertGithub(t *testing.T) {
	ctx := context.Background()
	gh := GithubIdentity{ID: 99, Login: "octo", Email: "octo@example.com", Name: "Octo"}

	t.Run("existing link refreshes token", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByGithubID", ctx, int64(99)).Return(&entity.Account{ID: 4, Enabled: true}, nil)
		store.On("LinkGithub", ctx, int64(4), int64(99), "gho_1").Return(true, nil)
		svc, _ := newTestService(store)

		a, err := svc.UpsertGithub(ctx, gh, "gho_1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), a.ID)
		store.AssertExpectations(t)
	})

	t.Run("anonymized account is not re-linked", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByGithubID", ctx, int64(99)).Return(nil, sql.ErrNoRows)
		store.On("GetByEmail", ctx, "octo@example.com").Return(&entity.Account{ID: 6, IsDeleted: true}, nil)
		store.On("LinkGithub", ctx, int64(6), int64(99), "gho_1").Return(false, nil)
		svc, _ := newTestService(store)

		_, err := svc.UpsertGithub(ctx, gh, "gho_1")
		assert.Equal(t, CodeAccountDisabled, codeOf(err))
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("new account gets a free nickname", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetByGithubID", ctx, int64(99)).Return(nil, sql.ErrNoRows)
		store.On("GetByEmail", ctx, "octo@example.com").Return(nil, sql.ErrNoRows)
		store.On("ExistsNickname", ctx, "octo").Return(true, nil)
		store.On("ExistsNickname", ctx, "octo_1").Return(false, nil)
		store.On("Create", ctx, mock.MatchedBy(func(a *entity.Account) bool {
			return a.Nickname == "octo_1" && a.GithubID != nil && *a.GithubID == 99 && a.Enabled
		})).Return(int64(12), nil)
		svc, _ := newTestService(store)

		a, err := svc.UpsertGithub(ctx, gh, "gho_1")
		require.NoError(t, err)
		assert.Equal(t, int64(12), a.ID)
		store.AssertExpectations(t)
	})
}
