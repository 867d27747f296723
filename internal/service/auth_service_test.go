package service

import (
	"context"
	"testing"
	"time"

	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserRepo is an in-memory UserRepository keyed by email.
type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if _, exists := r.users[user.Email]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	stored := *user
	stored.ID = primitive.NewObjectID()
	r.users[user.Email] = &stored
	return stored.ID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	user, err := svc.Register(context.Background(), "Alex", "alex@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Empty(t, user.PasswordHash, "hash must never leave the service")

	token, loggedIn, err := svc.Login(context.Background(), "alex@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	// The token must verify against the same secret and carry the user ID.
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "gymvision", claims.Issuer)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "Alex", "alex@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other", "alex@example.com", "password456")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "Alex", "alex@example.com", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "alex@example.com", "wrong")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLoginUnknownEmailLooksLikeBadPassword(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "", "alex@example.com", "password123")
	assert.Error(t, err)
	_, err = svc.Register(context.Background(), "Alex", "", "password123")
	assert.Error(t, err)
	_, err = svc.Register(context.Background(), "Alex", "alex@example.com", "")
	assert.Error(t, err)
}
