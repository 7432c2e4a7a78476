package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const sessionKey = "current_user"

// AdminCredentials describe the bootstrap administrator. The identity is
// synthetic: it is never written to the registry.
type AdminCredentials struct {
	ID       string
	Name     string
	Email    string
	Password string
}

type AuthOptions struct {
	Admin         AdminCredentials
	SessionSecret string
	SessionTTL    time.Duration
	LoginRate     float64
	LoginBurst    int
	BcryptCost    int
}

// SessionClaims is the persisted session pointer. It carries the identity
// snapshot so the synthetic admin can be restored without a registry lookup.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService owns the current-identity pointer.
type AuthService struct {
	store     *kvstore.Store
	users     *UserService
	secretKey []byte
	ttl       time.Duration
	admin     models.User
	adminHash []byte
	limiter   *rate.Limiter
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(store *kvstore.Store, users *UserService, opts AuthOptions, logger zerolog.Logger) (*AuthService, error) {
	if opts.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	limit := rate.Limit(opts.LoginRate)
	if opts.LoginRate <= 0 {
		limit = rate.Inf
	}
	burst := opts.LoginBurst
	if burst <= 0 {
		burst = 1
	}

	s := &AuthService{
		store:     store,
		users:     users,
		secretKey: []byte(opts.SessionSecret),
		ttl:       opts.SessionTTL,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
		now:       time.Now,
	}

	if opts.Admin.Email != "" && opts.Admin.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Admin.Password), opts.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		s.adminHash = hash
		s.admin = models.User{
			ID:    opts.Admin.ID,
			Name:  opts.Admin.Name,
			Email: opts.Admin.Email,
			Role:  string(models.RoleAdmin),
		}
	} else {
		logger.Warn().Msg("Admin credentials not configured, admin login disabled")
	}

	return s, nil
}

func (s *AuthService) isAdmin(email, password string) bool {
	if s.adminHash == nil || email != s.admin.Email {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)) == nil
}

// throttled reports whether failed attempts have used up the login budget.
func (s *AuthService) throttled() bool {
	return s.limiter.Limit() != rate.Inf && s.limiter.Tokens() < 1
}

// Authenticate checks the administrator pair first, then the registry, and
// on success points the session at the matched identity. Only failed
// attempts count against the login rate limit.
func (s *AuthService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if s.throttled() {
		s.logger.Warn().Str("email", req.Email).Msg("Login attempt throttled")
		return nil, ErrTooManyAttempts
	}

	var user *models.User
	if s.isAdmin(req.Email, req.Password) {
		user = s.admin.Public()
	} else {
		found, err := s.users.Authenticate(ctx, req)
		if errors.Is(err, ErrInvalidCredentials) {
			s.limiter.Allow()
		}
		if err != nil {
			return nil, err
		}
		user = found
	}

	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User authenticated successfully")
	return user, nil
}

// Signup registers a new user and logs them in.
func (s *AuthService) Signup(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	user, err := s.users.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Remove(ctx, sessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the session's identity, or nil when nobody is logged
// in. A session that fails verification or points at a deleted registry
// record is discarded.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	claims, err := s.sessionClaims(ctx)
	if err != nil || claims == nil {
		return nil, err
	}

	if claims.Role == string(models.RoleAdmin) {
		if s.adminHash == nil || claims.UserID != s.admin.ID {
			s.logger.Warn().Str("user_id", claims.UserID).Msg("Session references unknown admin, clearing")
			return nil, s.Logout(ctx)
		}
		return s.admin.Public(), nil
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		s.logger.Warn().Str("user_id", claims.UserID).Msg("Session references deleted user, clearing")
		return nil, s.Logout(ctx)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile edits a registry record and refreshes the session copy when
// the session points at that record.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch *models.ProfilePatch) (*models.User, error) {
	user, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	// The patch is already persisted; a stale session copy is logged, not
	// reported as a failed update.
	claims, err := s.sessionClaims(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error reading session after profile update")
		return user, nil
	}
	if claims != nil && claims.UserID == userID && claims.Role != string(models.RoleAdmin) {
		if err := s.setSession(ctx, user); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Error refreshing session after profile update")
		}
	}
	return user, nil
}

func (s *AuthService) UpdateCurrentProfile(ctx context.Context, patch *models.ProfilePatch) (*models.User, error) {
	current, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotAuthenticated
	}
	return s.UpdateProfile(ctx, current.ID, patch)
}

// DeleteUser removes a registry record and logs out if the session pointed
// at it. Carts, wishlists and orders keyed by the id are kept.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	claims, err := s.sessionClaims(ctx)
	if err != nil {
		return err
	}
	if claims != nil && claims.UserID == userID {
		return s.Logout(ctx)
	}
	return nil
}

func (s *AuthService) DeleteAccount(ctx context.Context) error {
	current, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotAuthenticated
	}
	return s.DeleteUser(ctx, current.ID)
}

func (s *AuthService) setSession(ctx context.Context, user *models.User) error {
	now := s.now()
	claims := &SessionClaims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Phone:  user.Phone,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error signing session")
		return fmt.Errorf("failed to sign session: %w", err)
	}

	if err := s.store.Set(ctx, sessionKey, tokenString); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// sessionClaims returns nil claims when no valid session is stored. An
// invalid or expired token is removed.
func (s *AuthService) sessionClaims(ctx context.Context) (*SessionClaims, error) {
	tokenString, err := kvstore.Get[string](ctx, s.store, sessionKey)
	if err != nil {
		return nil, err
	}
	if tokenString == "" {
		return nil, nil
	}

	claims, err := s.validateToken(tokenString)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding invalid session")
		return nil, s.Logout(ctx)
	}
	return claims, nil
}

func (s *AuthService) validateToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
