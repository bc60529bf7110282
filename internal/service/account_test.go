package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/isokoinfo/marketplace/internal/auth"
	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/media/memory"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// --- Fake revocation store ---

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: make(map[string]time.Time)}
}

func (f *fakeRevocations) Revoke(_ context.Context, sessionID string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revoked[sessionID] = until
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[sessionID]
	return ok, nil
}

func (f *fakeRevocations) has(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[sessionID]
	return ok
}

// --- Test Helpers ---

func newTestSessionManager() *auth.SessionManager {
	return auth.NewSessionManager("test-secret-key-for-testing-0123456789", time.Hour)
}

func newTestAccountService(r *testRepos, revoked *fakeRevocations, store *memory.Store) *AccountService {
	var revocations auth.RevocationStore
	if revoked != nil {
		revocations = revoked
	}
	return NewAccountService(r.repositories(), r.tx, newTestSessionManager(), revocations, store,
		newTestEventProducer(), newTestLogger())
}

var (
	aliceHashOnce sync.Once
	aliceHash     string
)

// passwordHash returns a bcrypt hash of "Passw0rd!", computed once.
func passwordHash(t *testing.T) string {
	t.Helper()
	aliceHashOnce.Do(func() {
		var err error
		aliceHash, err = auth.HashPassword("Passw0rd!")
		require.NoError(t, err)
	})
	return aliceHash
}

func legacyHash(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", iterations, salt, hex.EncodeToString(key))
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Name:            "alice",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
		Tel:             "0712345678",
		MarketID:        "1",
	}
}

func TestAccountService_Register(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").Return(nil, apperrors.NotFound("user", "alice"))
	r.markets.On("GetByID", mock.Anything, int64(1)).Return(&domain.Market{ID: 1, Name: "Gikomba"}, nil)
	r.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "alice" && u.Tel == "0712345678" && u.MarketID == 1 &&
			strings.HasPrefix(u.PasswordHash, "$2a$") && !strings.Contains(u.PasswordHash, "Passw0rd!")
	})).Run(func(args mock.Arguments) { args.Get(1).(*domain.User).ID = 1 }).Return(nil)

	in := validRegisterInput()
	in.Name = " alice "
	user, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	ok, _ := auth.VerifyPassword(user.PasswordHash, "Passw0rd!")
	assert.True(t, ok)
	r.assertExpectations(t)
}

func TestAccountService_Register_NameTaken(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").Return(&domain.User{ID: 1, Name: "alice"}, nil)

	_, err := svc.Register(context.Background(), validRegisterInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.True(t, strings.HasPrefix(apperrors.PublicMessage(err), "Username taken."))
	r.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_Register_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		msg    string
	}{
		{"missing name", func(in *RegisterInput) { in.Name = " " }, domain.MsgNameRequired},
		{"missing password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "", "" }, domain.MsgPasswordRequired},
		{"password mismatch", func(in *RegisterInput) { in.ConfirmPassword = "other" }, domain.MsgPasswordMismatch},
		{"name too long", func(in *RegisterInput) { in.Name = strings.Repeat("a", 201) }, domain.MsgNameTooLong},
		{"password over 72 bytes", func(in *RegisterInput) {
			in.Password = strings.Repeat("p", 73)
			in.ConfirmPassword = in.Password
		}, domain.MsgPasswordTooLong},
		{"bad phone prefix", func(in *RegisterInput) { in.Tel = "0812345678" }, domain.MsgInvalidPhone},
		{"short phone", func(in *RegisterInput) { in.Tel = "071234567" }, domain.MsgInvalidPhone},
		{"missing market", func(in *RegisterInput) { in.MarketID = "" }, domain.MsgMarketRequired},
		{"non-numeric market", func(in *RegisterInput) { in.MarketID = "gikomba" }, domain.MsgMarketRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRepos()
			svc := newTestAccountService(r, nil, memory.New(""))

			in := validRegisterInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, tt.msg, apperrors.PublicMessage(err))
			assert.Zero(t, r.tx.calls)
		})
	}
}

func TestAccountService_Register_UnknownMarket(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").Return(nil, apperrors.NotFound("user", "alice"))
	r.markets.On("GetByID", mock.Anything, int64(1)).Return(nil, apperrors.NotFound("market", 1))

	_, err := svc.Register(context.Background(), validRegisterInput())
	assert.Equal(t, domain.MsgUnknownMarket, apperrors.PublicMessage(err))
	r.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_Login(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").
		Return(&domain.User{ID: 1, Name: "alice", MarketID: 3, PasswordHash: passwordHash(t)}, nil)

	res, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(1), res.Session.UserID)
	assert.Equal(t, "alice", res.Session.Name)
	assert.Equal(t, int64(3), res.Session.MarketID)

	sess, err := newTestSessionManager().Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, sess.ID)
	r.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAccountService_Login_Failures(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").
		Return(&domain.User{ID: 1, Name: "alice", PasswordHash: passwordHash(t)}, nil)
	r.users.On("GetByName", mock.Anything, "mallory").Return(nil, apperrors.NotFound("user", "mallory"))

	_, wrongPassword := svc.Login(context.Background(), "alice", "wrong")
	_, unknownUser := svc.Login(context.Background(), "mallory", "Passw0rd!")

	for _, err := range []error{wrongPassword, unknownUser} {
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, "Invalid username or password", apperrors.PublicMessage(err))
	}
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestAccountService_Login_StorageError(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").Return(nil, errors.New("connection refused"))

	_, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
}

func TestAccountService_Login_UpgradesLegacyHash(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	legacy := legacyHash("Passw0rd!", "Zk3oQ1aB", 1000)
	r.users.On("GetByName", mock.Anything, "alice").
		Return(&domain.User{ID: 1, Name: "alice", PasswordHash: legacy}, nil)
	r.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return strings.HasPrefix(u.PasswordHash, "$2a$")
	})).Return(nil)

	_, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)
	r.assertExpectations(t)
}

func TestAccountService_Login_UpgradeFailureStillLogsIn(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))

	r.users.On("GetByName", mock.Anything, "alice").
		Return(&domain.User{ID: 1, Name: "alice", PasswordHash: legacyHash("Passw0rd!", "salt", 1000)}, nil)
	r.users.On("Update", mock.Anything, mock.Anything).Return(errors.New("read-only replica"))

	res, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestAccountService_Logout(t *testing.T) {
	r := newTestRepos()
	revoked := newFakeRevocations()
	svc := newTestAccountService(r, revoked, memory.New(""))

	_, sess, err := newTestSessionManager().Issue(1, "alice", 3)
	require.NoError(t, err)

	svc.Logout(context.Background(), sess)
	assert.True(t, revoked.has(sess.ID))

	svc.Logout(context.Background(), sess)
	svc.Logout(context.Background(), nil)
}

func TestAccountService_Authenticate(t *testing.T) {
	sessions := newTestSessionManager()
	token, issued, err := sessions.Issue(1, "alice", 3)
	require.NoError(t, err)

	t.Run("valid session", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, newFakeRevocations(), memory.New(""))
		r.users.On("GetByID", mock.Anything, int64(1)).
			Return(&domain.User{ID: 1, Name: "alice2", MarketID: 4}, nil)

		sess, user, err := svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, issued.ID, sess.ID)
		assert.Equal(t, "alice2", sess.Name)
		assert.Equal(t, int64(4), sess.MarketID)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("revoked session", func(t *testing.T) {
		r := newTestRepos()
		revoked := newFakeRevocations()
		require.NoError(t, revoked.Revoke(context.Background(), issued.ID, issued.ExpiresAt))
		svc := newTestAccountService(r, revoked, memory.New(""))

		_, _, err := svc.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		r.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("revocation store down fails open", func(t *testing.T) {
		r := newTestRepos()
		revoked := newFakeRevocations()
		revoked.err = errors.New("redis: connection refused")
		svc := newTestAccountService(r, revoked, memory.New(""))
		r.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1, Name: "alice"}, nil)

		_, _, err := svc.Authenticate(context.Background(), token)
		assert.NoError(t, err)
	})

	t.Run("user deleted", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))
		r.users.On("GetByID", mock.Anything, int64(1)).Return(nil, apperrors.NotFound("user", 1))

		_, _, err := svc.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, domain.MsgLoginRequired, apperrors.PublicMessage(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))

		_, _, err := svc.Authenticate(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestAccountService_UpdateSettings(t *testing.T) {
	r := newTestRepos()
	revoked := newFakeRevocations()
	svc := newTestAccountService(r, revoked, memory.New(""))

	_, sess, err := newTestSessionManager().Issue(1, "alice", 1)
	require.NoError(t, err)

	oldHash := passwordHash(t)
	r.users.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.User{ID: 1, Name: "alice", MarketID: 1, PasswordHash: oldHash}, nil)
	r.users.On("GetByName", mock.Anything, "alicia").Return(nil, apperrors.NotFound("user", "alicia"))
	r.markets.On("GetByID", mock.Anything, int64(2)).Return(&domain.Market{ID: 2, Name: "Wakulima"}, nil)
	r.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "alicia" && u.MarketID == 2 && u.PasswordHash == oldHash
	})).Return(nil)

	res, err := svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{Name: "alicia", MarketID: "2"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", res.Session.Name)
	assert.Equal(t, int64(2), res.Session.MarketID)
	assert.NotEqual(t, sess.ID, res.Session.ID)
	assert.True(t, revoked.has(sess.ID))
	r.assertExpectations(t)
}

func TestAccountService_UpdateSettings_ChangesPassword(t *testing.T) {
	r := newTestRepos()
	svc := newTestAccountService(r, nil, memory.New(""))
	_, sess, err := newTestSessionManager().Issue(1, "alice", 1)
	require.NoError(t, err)

	r.users.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.User{ID: 1, Name: "alice", MarketID: 1, PasswordHash: passwordHash(t)}, nil)
	r.users.On("GetByName", mock.Anything, "alice").Return(&domain.User{ID: 1, Name: "alice"}, nil)
	r.markets.On("GetByID", mock.Anything, int64(1)).Return(&domain.Market{ID: 1, Name: "Gikomba"}, nil)
	r.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		ok, _ := auth.VerifyPassword(u.PasswordHash, "N3wPassword")
		return ok
	})).Return(nil)

	_, err = svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{
		Name: "alice", Password: "N3wPassword", ConfirmPassword: "N3wPassword", MarketID: "1",
	})
	require.NoError(t, err)
	r.assertExpectations(t)
}

func TestAccountService_UpdateSettings_Rejections(t *testing.T) {
	_, sess, err := newTestSessionManager().Issue(1, "alice", 1)
	require.NoError(t, err)

	t.Run("name taken by another user", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))
		r.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1, Name: "alice"}, nil)
		r.users.On("GetByName", mock.Anything, "bob").Return(&domain.User{ID: 2, Name: "bob"}, nil)

		_, err := svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{Name: "bob", MarketID: "1"})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		assert.Equal(t, domain.MsgNameTaken, apperrors.PublicMessage(err))
		r.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("password mismatch", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))

		_, err := svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{
			Name: "alice", Password: "a", ConfirmPassword: "b", MarketID: "1",
		})
		assert.Equal(t, domain.MsgPasswordMismatch, apperrors.PublicMessage(err))
		assert.Zero(t, r.tx.calls)
	})

	t.Run("missing name", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))

		_, err := svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{MarketID: "1"})
		assert.Equal(t, domain.MsgNameRequired, apperrors.PublicMessage(err))
	})

	t.Run("name too long", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))

		_, err := svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{
			Name: strings.Repeat("a", 201), MarketID: "1",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, domain.MsgNameTooLong, apperrors.PublicMessage(err))
		assert.Zero(t, r.tx.calls)
	})

	t.Run("password over 72 bytes", func(t *testing.T) {
		r := newTestRepos()
		svc := newTestAccountService(r, nil, memory.New(""))
		long := strings.Repeat("p", 73)

		_, err := svc.UpdateSettings(context.Background(), sess, UpdateSettingsInput{
			Name: "alice", Password: long, ConfirmPassword: long, MarketID: "1",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, domain.MsgPasswordTooLong, apperrors.PublicMessage(err))
		assert.Zero(t, r.tx.calls)
	})
}

func TestAccountService_DeleteAccount(t *testing.T) {
	r := newTestRepos()
	revoked := newFakeRevocations()
	store := memory.New("http://media.test")
	svc := newTestAccountService(r, revoked, store)

	first, second := storeImage(t, store), storeImage(t, store)
	unrelated := storeImage(t, store)

	_, sess, err := newTestSessionManager().Issue(1, "alice", 1)
	require.NoError(t, err)

	r.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1}, nil)
	r.products.On("ListByUser", mock.Anything, int64(1)).Return([]domain.Product{
		{ID: 10, UserID: 1, ImagePublicID: first},
		{ID: 11, UserID: 1, ImagePublicID: second},
	}, nil)
	r.reviews.On("DeleteBySeller", mock.Anything, int64(1)).Return(int64(4), nil)
	r.products.On("DeleteByUser", mock.Anything, int64(1)).Return(int64(2), nil)
	r.codes.On("DeleteByUser", mock.Anything, int64(1)).Return(int64(3), nil)
	r.users.On("Delete", mock.Anything, int64(1)).Return(nil)

	require.NoError(t, svc.DeleteAccount(context.Background(), sess))

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(unrelated)
	assert.True(t, ok)
	assert.True(t, revoked.has(sess.ID))
	r.assertExpectations(t)
}

func TestAccountService_DeleteAccount_RollsBack(t *testing.T) {
	r := newTestRepos()
	revoked := newFakeRevocations()
	store := memory.New("http://media.test")
	svc := newTestAccountService(r, revoked, store)
	imageID := storeImage(t, store)

	_, sess, err := newTestSessionManager().Issue(1, "alice", 1)
	require.NoError(t, err)

	r.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1}, nil)
	r.products.On("ListByUser", mock.Anything, int64(1)).
		Return([]domain.Product{{ID: 10, UserID: 1, ImagePublicID: imageID}}, nil)
	r.reviews.On("DeleteBySeller", mock.Anything, int64(1)).Return(int64(0), nil)
	r.products.On("DeleteByUser", mock.Anything, int64(1)).Return(int64(0), errors.New("lock timeout"))

	err = svc.DeleteAccount(context.Background(), sess)
	require.Error(t, err)
	assert.Equal(t, apperrors.GenericMessage, apperrors.PublicMessage(err))

	assert.Equal(t, 1, store.Len(), "images stay until the cascade commits")
	assert.False(t, revoked.has(sess.ID))
	r.codes.AssertNotCalled(t, "DeleteByUser", mock.Anything, mock.Anything)
	r.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
