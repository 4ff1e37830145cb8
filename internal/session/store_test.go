package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"boutique/internal/api"
	"boutique/internal/database"
	"boutique/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	token       string
	err         error
	registered  []api.RegisterRequest
	registerErr error
}

func (f *fakeAuth) Login(_ context.Context, identifier, secret string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if secret != "secret1" {
		return "", &api.Error{Status: 401, Message: "Invalid credentials."}
	}
	return f.token, nil
}

func (f *fakeAuth) Register(_ context.Context, req api.RegisterRequest) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, req)
	return nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(auth *fakeAuth, storage *testutil.MemStorage) *Store {
	return NewStore(auth, storage).WithClock(func() time.Time { return now })
}

func TestLoginAndLogout(t *testing.T) {
	storage := testutil.NewMemStorage()
	auth := &fakeAuth{token: testutil.Token(4, "ana@example.com", "Ana", now.Add(time.Hour))}
	s := newStore(auth, storage)

	var transitions []bool
	s.Subscribe(func(_ context.Context, authenticated bool) {
		transitions = append(transitions, authenticated)
	})

	ok := s.Login(context.Background(), "ana@example.com", "secret1")
	require.True(t, ok)
	assert.True(t, s.IsAuthenticated())
	require.NotNil(t, s.User())
	assert.Equal(t, "Ana", s.User().Firstname)
	assert.Equal(t, 4, s.User().ID)
	assert.Equal(t, []string{"ROLE_USER"}, s.User().Roles)
	assert.True(t, storage.Has(database.KeyToken))

	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, auth.token, token)

	s.Logout(context.Background())
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.False(t, storage.Has(database.KeyToken))
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestLoginFailuresReturnFalse(t *testing.T) {
	storage := testutil.NewMemStorage()
	s := newStore(&fakeAuth{token: testutil.Token(1, "a@b.co", "A", now.Add(time.Hour))}, storage)
	assert.False(t, s.Login(context.Background(), "a@b.co", "wrong"))
	assert.False(t, s.IsAuthenticated())

	down := newStore(&fakeAuth{err: errors.New("connection refused")}, storage)
	assert.False(t, down.Login(context.Background(), "a@b.co", "secret1"))

	expired := newStore(&fakeAuth{token: testutil.Token(1, "a@b.co", "A", now.Add(-time.Minute))}, storage)
	assert.False(t, expired.Login(context.Background(), "a@b.co", "secret1"))

	garbage := newStore(&fakeAuth{token: "not-a-jwt"}, storage)
	assert.False(t, garbage.Login(context.Background(), "a@b.co", "secret1"))
	assert.False(t, storage.Has(database.KeyToken))
}

func TestBootstrapRestoresValidToken(t *testing.T) {
	storage := testutil.NewMemStorage()
	token := testutil.Token(9, "lea@example.com", "Léa", now.Add(time.Hour))
	require.NoError(t, storage.Set(context.Background(), database.KeyToken, token))

	s := newStore(&fakeAuth{}, storage)
	assert.True(t, s.IsLoading())

	s.Bootstrap(context.Background())
	assert.False(t, s.IsLoading())
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "lea@example.com", s.User().Email)
}

func TestBootstrapDiscardsExpiredAndMalformedTokens(t *testing.T) {
	for name, token := range map[string]string{
		"expired":   testutil.Token(9, "lea@example.com", "Léa", now.Add(-time.Second)),
		"malformed": "abc.def",
		"garbage":   "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			storage := testutil.NewMemStorage()
			require.NoError(t, storage.Set(context.Background(), database.KeyToken, token))

			var transitions []bool
			s := newStore(&fakeAuth{}, storage)
			s.Subscribe(func(_ context.Context, authenticated bool) {
				transitions = append(transitions, authenticated)
			})

			s.Bootstrap(context.Background())
			assert.False(t, s.IsLoading())
			assert.False(t, s.IsAuthenticated())
			assert.False(t, storage.Has(database.KeyToken))
			assert.Equal(t, []bool{false}, transitions)
		})
	}
}

func TestBootstrapWithoutTokenStaysQuiet(t *testing.T) {
	s := newStore(&fakeAuth{}, testutil.NewMemStorage())
	called := false
	s.Subscribe(func(context.Context, bool) { called = true })

	s.Bootstrap(context.Background())
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsAuthenticated())
	assert.False(t, called)
}

func TestBootstrapAlwaysFinishesLoading(t *testing.T) {
	storage := testutil.NewMemStorage()
	storage.Fail = true

	s := newStore(&fakeAuth{}, storage)
	s.Bootstrap(context.Background())
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsAuthenticated())
}

func TestBootstrapReadFailureKeepsToken(t *testing.T) {
	storage := testutil.NewMemStorage()
	token := testutil.Token(9, "lea@example.com", "Léa", now.Add(time.Hour))
	require.NoError(t, storage.Set(context.Background(), database.KeyToken, token))
	storage.FailGets = 1

	called := false
	s := newStore(&fakeAuth{}, storage)
	s.Subscribe(func(context.Context, bool) { called = true })

	s.Bootstrap(context.Background())
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsAuthenticated())
	assert.False(t, called)
	assert.True(t, storage.Has(database.KeyToken))

	// the next client instance reads it fine
	next := newStore(&fakeAuth{}, storage)
	next.Bootstrap(context.Background())
	assert.True(t, next.IsAuthenticated())
}

func TestBootstrapDiscardsUnsealableToken(t *testing.T) {
	storage := testutil.NewMemStorage()
	require.NoError(t, storage.Set(context.Background(), database.KeyToken, "sealed"))
	storage.FailGets = 1
	storage.GetErr = fmt.Errorf("failed to open token: %w", database.ErrSealedValue)

	var transitions []bool
	s := newStore(&fakeAuth{}, storage)
	s.Subscribe(func(_ context.Context, authenticated bool) {
		transitions = append(transitions, authenticated)
	})

	s.Bootstrap(context.Background())
	assert.False(t, storage.Has(database.KeyToken))
	assert.Equal(t, []bool{false}, transitions)
}

func TestExpiredTokenIsNeverAuthenticated(t *testing.T) {
	clock := now
	auth := &fakeAuth{token: testutil.Token(4, "ana@example.com", "Ana", now.Add(time.Minute))}
	s := NewStore(auth, testutil.NewMemStorage()).WithClock(func() time.Time { return clock })

	require.True(t, s.Login(context.Background(), "ana@example.com", "secret1"))

	clock = now.Add(2 * time.Minute)
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	_, ok := s.Token()
	assert.False(t, ok)

	var transitions []bool
	s.Subscribe(func(_ context.Context, authenticated bool) {
		transitions = append(transitions, authenticated)
	})
	assert.False(t, s.Validate(context.Background()))
	assert.Equal(t, []bool{false}, transitions)

	// already cleaned up, nothing more to announce
	assert.False(t, s.Validate(context.Background()))
	assert.Equal(t, []bool{false}, transitions)
}

func TestRegisterValidatesThenLogsIn(t *testing.T) {
	auth := &fakeAuth{token: testutil.Token(5, "new@example.com", "Nina", now.Add(time.Hour))}
	s := newStore(auth, testutil.NewMemStorage())

	err := s.Register(context.Background(), RegisterInput{
		Firstname: "Nina", Lastname: "Roux", Email: "new@example.com",
		Password: "secret1", ConfirmPassword: "other1",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "confirmPassword", verr.Field)
	assert.Empty(t, auth.registered)

	err = s.Register(context.Background(), RegisterInput{
		Firstname: "Nina", Lastname: "Roux", Email: " new@example.com ",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	require.Len(t, auth.registered, 1)
	assert.Equal(t, "new@example.com", auth.registered[0].Email)
	assert.True(t, s.IsAuthenticated())
}

func TestRegisterInputValidation(t *testing.T) {
	cases := map[string]RegisterInput{
		"general":  {Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"},
		"email":    {Firstname: "A", Lastname: "B", Email: "nope", Password: "secret1", ConfirmPassword: "secret1"},
		"password": {Firstname: "A", Lastname: "B", Email: "a@b.co", Password: "123", ConfirmPassword: "123"},
	}
	for field, in := range cases {
		err := in.Validate()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}
}

func TestDecodeToken(t *testing.T) {
	exp := now.Add(time.Hour).Truncate(time.Second)
	claims, err := DecodeToken(testutil.Token(3, "x@y.fr", "Xavier", exp))
	require.NoError(t, err)
	assert.Equal(t, 3, claims.UserID)
	assert.Equal(t, "x@y.fr", claims.Username)
	assert.True(t, claims.ExpiresAt.Time.Equal(exp))
	assert.False(t, claims.Expired(now))
	assert.True(t, claims.Expired(exp))

	_, err = DecodeToken("only.two")
	assert.ErrorIs(t, err, ErrMalformedToken)
}
