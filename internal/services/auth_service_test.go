package services

import (
	"context"
	"testing"
	"time"

	"storefront/internal/db"
	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_AdminLoginIsSynthetic(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()

	admin, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "admin@aurelia.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdmin), admin.Role)
	assert.Equal(t, "admin-001", admin.ID)

	users, err := f.Users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users, "admin must not be written to the registry")

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, current.IsAdmin())

	_, err = f.Users.GetUserByID(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_AdminWrongPassword(t *testing.T) {
	f, _ := newTestStorefront(t)

	_, err := f.Auth.Authenticate(context.Background(), &models.LoginRequest{Email: "admin@aurelia.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginAndLogout(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	alice := register(t, f, "alice", "alice@x.com")

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "nobody@x.com", Password: "secret-alice"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	current, err = f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, alice.ID, current.ID)

	require.NoError(t, f.Auth.Logout(ctx))
	require.NoError(t, f.Auth.Logout(ctx))
	current, err = f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestAuthService_SignupLogsIn(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()

	user, err := f.Auth.Signup(ctx, &models.RegisterRequest{Name: "Carol", Email: "carol@x.com", Password: "pw", Phone: "1"})
	require.NoError(t, err)

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)

	_, err = f.Auth.Signup(ctx, &models.RegisterRequest{Name: "Carol", Email: "carol@x.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthService_UpdateProfileRefreshesSession(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	alice := register(t, f, "alice", "alice@x.com")
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)

	name := "Alice L."
	_, err = f.Auth.UpdateProfile(ctx, alice.ID, &models.ProfilePatch{Name: &name})
	require.NoError(t, err)

	claims, err := f.Auth.sessionClaims(ctx)
	require.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, name, claims.Name)

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, current.Name)
}

func TestAuthService_UpdateOtherProfileKeepsSession(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	register(t, f, "alice", "alice@x.com")
	bob := register(t, f, "bob", "bob@x.com")
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)

	name := "Robert"
	_, err = f.Auth.UpdateProfile(ctx, bob.ID, &models.ProfilePatch{Name: &name})
	require.NoError(t, err)

	claims, err := f.Auth.sessionClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Name)
}

func TestAuthService_UpdateProfileSurvivesSessionWriteFailure(t *testing.T) {
	f, backend := newTestStorefront(t)
	ctx := context.Background()
	alice := register(t, f, "alice", "alice@x.com")
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)

	backend.setFailOn("current_user")
	name := "Alice L."
	updated, err := f.Auth.UpdateProfile(ctx, alice.ID, &models.ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	stored, err := f.Users.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Name)

	backend.setFailOn("")
	claims, err := f.Auth.sessionClaims(ctx)
	require.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, "alice", claims.Name)
}

func TestAuthService_AccountOperationsRequireSession(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()

	name := "x"
	_, err := f.Auth.UpdateCurrentProfile(ctx, &models.ProfilePatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, f.Auth.DeleteAccount(ctx), ErrNotAuthenticated)
}

func TestAuthService_DeleteCurrentUserKeepsOrders(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	u1 := register(t, f, "u1", "u1@x.com")
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "u1@x.com", Password: "secret-u1"})
	require.NoError(t, err)

	_, err = f.Cart.Add(ctx, u1.ID, product("P", 1000))
	require.NoError(t, err)
	order, err := f.Checkout(ctx, models.ShippingAddress{Name: "U One", City: "Pune"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.Auth.DeleteAccount(ctx))

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	orders, err := f.Orders.ListForIdentity(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.Equal(t, string(models.OrderStatusPending), orders[0].Status)
}

func TestAuthService_DeleteOtherUserKeepsSession(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	alice := register(t, f, "alice", "alice@x.com")
	bob := register(t, f, "bob", "bob@x.com")
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)

	require.NoError(t, f.Auth.DeleteUser(ctx, bob.ID))

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, alice.ID, current.ID)

	assert.ErrorIs(t, f.Auth.DeleteUser(ctx, bob.ID), ErrUserNotFound)
}

func TestAuthService_SessionForRemovedUserIsCleared(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	alice := register(t, f, "alice", "alice@x.com")
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)

	// removed behind the session manager's back
	require.NoError(t, f.Users.Delete(ctx, alice.ID))

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	token, err := kvstore.Get[string](ctx, f.Auth.store, sessionKey)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestAuthService_TamperedSessionIsRejected(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()

	forged := &AuthService{store: f.Auth.store, secretKey: []byte("attacker"), ttl: time.Hour, now: time.Now, logger: zerolog.Nop()}
	require.NoError(t, forged.setSession(ctx, &models.User{ID: "admin-001", Role: string(models.RoleAdmin)}))

	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestAuthService_ExpiredSession(t *testing.T) {
	f, _ := newTestStorefront(t)
	ctx := context.Background()
	register(t, f, "alice", "alice@x.com")

	start := time.Now()
	f.Auth.now = func() time.Time { return start }
	_, err := f.Auth.Authenticate(ctx, &models.LoginRequest{Email: "alice@x.com", Password: "secret-alice"})
	require.NoError(t, err)

	f.Auth.now = func() time.Time { return start.Add(25 * time.Hour) }
	current, err := f.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestAuthService_LoginThrottle(t *testing.T) {
	store := kvstore.New(db.NewMemory(), "", zerolog.Nop(), nil)
	opts := testOptions()
	opts.LoginRate = 0.001
	opts.LoginBurst = 2
	f, err := NewStorefront(store, opts, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	valid := &models.LoginRequest{Email: "admin@aurelia.com", Password: "admin123"}
	wrong := &models.LoginRequest{Email: "admin@aurelia.com", Password: "guess"}

	// successful logins never use up the budget
	for i := 0; i < 12; i++ {
		_, err := f.Auth.Authenticate(ctx, valid)
		require.NoError(t, err, "login %d", i+1)
	}

	for i := 0; i < 2; i++ {
		_, err := f.Auth.Authenticate(ctx, wrong)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = f.Auth.Authenticate(ctx, wrong)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	_, err = f.Auth.Authenticate(ctx, valid)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestAuthService_AdminDisabledWithoutCredentials(t *testing.T) {
	store := kvstore.New(db.NewMemory(), "", zerolog.Nop(), nil)
	opts := testOptions()
	opts.Admin = AdminCredentials{}
	f, err := NewStorefront(store, opts, zerolog.Nop())
	require.NoError(t, err)

	_, err = f.Auth.Authenticate(context.Background(), &models.LoginRequest{Email: "admin@aurelia.com", Password: "admin123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	store := kvstore.New(db.NewMemory(), "", zerolog.Nop(), nil)
	opts := testOptions()
	opts.SessionSecret = ""
	_, err := NewStorefront(store, opts, zerolog.Nop())
	assert.Error(t, err)
}
