package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const usersKey = "users"

// UserService is the identity registry. Email addresses are unique and
// compared exactly as stored.
type UserService struct {
	store      *kvstore.Store
	logger     zerolog.Logger
	bcryptCost int
	now        func() time.Time
}

func NewUserService(store *kvstore.Store, logger zerolog.Logger, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		store:      store,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func indexByEmail(users []models.User, email string) int {
	for i := range users {
		if users[i].Email == email {
			return i
		}
	}
	return -1
}

func indexByID(users []models.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *UserService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email, and password are required", ErrInvalidInput)
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Phone:        req.Phone,
		Role:         string(models.RoleUser),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = kvstore.Mutate(ctx, s.store, usersKey, func(users []models.User) ([]models.User, error) {
		if indexByEmail(users, req.Email) != -1 {
			return nil, ErrDuplicateEmail
		}
		return append(users, user), nil
	})
	if errors.Is(err, ErrDuplicateEmail) {
		s.logger.Warn().Str("email", req.Email).Msg("Registration with existing email")
		return nil, err
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered successfully")
	return user.Public(), nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	users, err := kvstore.Get[[]models.User](ctx, s.store, usersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	i := indexByID(users, userID)
	if i == -1 {
		return nil, ErrUserNotFound
	}
	return users[i].Public(), nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := kvstore.Get[[]models.User](ctx, s.store, usersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Update applies patch to the stored record. Changing the email re-checks
// uniqueness against every other record.
func (s *UserService) Update(ctx context.Context, userID string, patch *models.ProfilePatch) (*models.User, error) {
	if patch.Email != nil && *patch.Email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}

	var passwordHash string
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, fmt.Errorf("%w: password cannot be empty", ErrInvalidInput)
		}
		hashed, err := s.hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = hashed
	}

	var updated models.User
	_, err := kvstore.Mutate(ctx, s.store, usersKey, func(users []models.User) ([]models.User, error) {
		i := indexByID(users, userID)
		if i == -1 {
			return nil, ErrUserNotFound
		}
		if patch.Email != nil && *patch.Email != users[i].Email {
			if indexByEmail(users, *patch.Email) != -1 {
				return nil, ErrDuplicateEmail
			}
			users[i].Email = *patch.Email
		}
		if patch.Name != nil {
			users[i].Name = *patch.Name
		}
		if patch.Phone != nil {
			users[i].Phone = *patch.Phone
		}
		if passwordHash != "" {
			users[i].PasswordHash = passwordHash
		}
		users[i].UpdatedAt = s.now()
		updated = users[i]
		return users, nil
	})
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return nil, err
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error updating user")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Msg("User profile updated")
	return updated.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, userID string) error {
	_, err := kvstore.Mutate(ctx, s.store, usersKey, func(users []models.User) ([]models.User, error) {
		i := indexByID(users, userID)
		if i == -1 {
			return nil, ErrUserNotFound
		}
		return append(users[:i], users[i+1:]...), nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return err
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error deleting user")
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Msg("User deleted")
	return nil
}

// Authenticate returns the registry user whose email and password both match.
func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	users, err := kvstore.Get[[]models.User](ctx, s.store, usersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	i := indexByEmail(users, req.Email)
	if i == -1 {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(req.Password))
	if err != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
		return nil, ErrInvalidCredentials
	}

	return users[i].Public(), nil
}
