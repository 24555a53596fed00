package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
)

type userRepoStub struct {
	users map[string]*models.User
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (r *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if user, ok := r.users[id]; ok {
		user.LastLoginAt = &ts
	}
	return nil
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *userRepoStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "teacher@haksa.io",
			PasswordHash: string(hash),
			FullName:     "Kim Teacher",
			Role:         models.RoleTeacher,
			Active:       true,
		},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret: "unit-test-secret",
		Expiry: time.Hour,
		Issuer: "student-records-api",
	})
	return svc, repo
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "teacher@haksa.io",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
	require.NotNil(t, repo.users["user-1"].LastLoginAt)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)
	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "teacher@haksa.io",
		Password: "wrong-password-here",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	repo.users["user-1"].Active = false
	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "teacher@haksa.io",
		Password: "correct-horse-battery",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)
	other := NewAuthService(nil, nil, zap.NewNop(), AuthConfig{Secret: "different-secret", Expiry: time.Hour})
	forged, err := other.generateAccessToken(&models.User{ID: "user-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
