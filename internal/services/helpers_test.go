package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"storefront/internal/db"
	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errWriteFailed = errors.New("quota exceeded")

// flakyBackend fails writes to keys containing failOn.
type flakyBackend struct {
	*db.Memory
	mu     sync.Mutex
	failOn string
}

func (b *flakyBackend) setFailOn(fragment string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOn = fragment
}

func (b *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	failOn := b.failOn
	b.mu.Unlock()
	if failOn != "" && strings.Contains(key, failOn) {
		return errWriteFailed
	}
	return b.Memory.Set(ctx, key, value)
}

func testOptions() AuthOptions {
	return AuthOptions{
		Admin: AdminCredentials{
			ID:       "admin-001",
			Name:     "Aurelia Admin",
			Email:    "admin@aurelia.com",
			Password: "admin123",
		},
		SessionSecret: "test-secret",
		LoginRate:     100,
		LoginBurst:    100,
		BcryptCost:    bcrypt.MinCost,
	}
}

func newTestStorefront(t *testing.T) (*Storefront, *flakyBackend) {
	t.Helper()
	backend := &flakyBackend{Memory: db.NewMemory()}
	store := kvstore.New(backend, "aurelia_", zerolog.Nop(), nil)
	f, err := NewStorefront(store, testOptions(), zerolog.Nop())
	require.NoError(t, err)
	return f, backend
}

func product(id string, price int64) models.Product {
	return models.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.NewFromInt(price),
		Image: "/img/" + id + ".jpg",
	}
}

func register(t *testing.T, f *Storefront, name, email string) *models.User {
	t.Helper()
	u, err := f.Users.Register(context.Background(), &models.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "secret-" + name,
		Phone:    "555-0100",
	})
	require.NoError(t, err)
	return u
}

func quantities(items []models.CartLineItem) map[string]int {
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item.ID] = item.Quantity
	}
	return out
}

func productIDs(items []models.Product) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func lineIDs(items []models.CartLineItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
