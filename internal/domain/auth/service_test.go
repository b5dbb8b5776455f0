package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
)

type memUsers struct {
	byEmail map[string]*User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]*User)}
}

func (m *memUsers) Create(ctx context.Context, user *User) error {
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	for _, u := range m.byEmail {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", userID.String())
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return u, nil
}

func (m *memUsers) Update(ctx context.Context, user *User) error {
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUsers) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memUsers) List(ctx context.Context, limit, offset int) ([]*User, error) {
	var out []*User
	for _, u := range m.byEmail {
		out = append(out, u)
	}
	return out, nil
}

func testContext() context.Context {
	t := tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
	return tenant.WithTenant(context.Background(), t)
}

func newTestService() (*Service, *memUsers) {
	users := newMemUsers()
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))
	return NewService(users, jwtService, DefaultServiceConfig()), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := testContext()

	user, err := svc.Register(ctx, RegisterRequest{
		Email:    "cashier@pharmacy.local",
		Password: "correct-horse",
		Name:     "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleCashier, user.Role, "role defaults to cashier")
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	token, logged, err := svc.Login(ctx, Credentials{Email: "cashier@pharmacy.local", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	// The token round-trips into the operator context.
	uc, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.Equal(t, user.SiteID.String(), uc.SiteID)
	assert.Equal(t, user.CompanyID.String(), uc.CompanyID)
	assert.Equal(t, RoleCashier, uc.Role)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := testContext()

	req := RegisterRequest{Email: "a@b.c", Password: "long-enough", Name: "A"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestRegister_ShortPasswordRejected(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(testContext(), RegisterRequest{Email: "a@b.c", Password: "short", Name: "A"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestLogin_WrongPasswordIsIndistinguishable(t *testing.T) {
	svc, _ := newTestService()
	ctx := testContext()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "long-enough", Name: "A"})
	require.NoError(t, err)

	_, _, wrongPass := svc.Login(ctx, Credentials{Email: "a@b.c", Password: "nope-nope"})
	_, _, noUser := svc.Login(ctx, Credentials{Email: "ghost@b.c", Password: "nope-nope"})

	require.Error(t, wrongPass)
	require.Error(t, noUser)
	assert.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	svc, users := newTestService()
	ctx := testContext()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "long-enough", Name: "A"})
	require.NoError(t, err)

	for i := 0; i < DefaultServiceConfig().MaxLoginAttempts; i++ {
		_, _, err = svc.Login(ctx, Credentials{Email: "a@b.c", Password: "wrong"})
		require.Error(t, err)
	}
	assert.True(t, users.byEmail["a@b.c"].IsLocked())

	// Even the right password bounces while locked.
	_, _, err = svc.Login(ctx, Credentials{Email: "a@b.c", Password: "long-enough"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestValidateToken_Tampered(t *testing.T) {
	svc, _ := newTestService()
	ctx := testContext()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "long-enough", Name: "A"})
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, Credentials{Email: "a@b.c", Password: "long-enough"})
	require.NoError(t, err)

	tampered := token.AccessToken[:len(token.AccessToken)-2] + "xx"
	_, err = svc.ValidateToken(tampered)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	users := newMemUsers()
	issuer := NewService(users, NewJWTService(DefaultJWTConfig("secret-one")), DefaultServiceConfig())
	verifier := NewService(users, NewJWTService(DefaultJWTConfig("secret-two")), DefaultServiceConfig())
	ctx := testContext()

	_, err := issuer.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "long-enough", Name: "A"})
	require.NoError(t, err)
	token, _, err := issuer.Login(ctx, Credentials{Email: "a@b.c", Password: "long-enough"})
	require.NoError(t, err)
	require.True(t, strings.Count(token.AccessToken, ".") == 2)

	_, err = verifier.ValidateToken(token.AccessToken)
	require.Error(t, err)
}
