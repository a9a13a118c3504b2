package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

type authRepoStub struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken
	created      []*models.User
	revoked      []string
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
	}
}

func (r *authRepoStub) addUser(user *models.User) {
	r.usersByEmail[user.Email] = user
	r.usersByID[user.ID] = user
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := r.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.usersByID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	r.created = append(r.created, user)
	r.addUser(user)
	return nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (r *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if user, ok := r.usersByID[id]; ok {
		user.PasswordHash = passwordHash
		return nil
	}
	return sql.ErrNoRows
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rec, ok := r.tokens[token]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string) error {
	for _, rec := range r.tokens {
		if rec.ID == id {
			rec.Revoked = true
			return nil
		}
	}
	return sql.ErrNoRows
}

type activityStub struct {
	entries []*models.ActivityLog
}

func (a *activityStub) Create(ctx context.Context, entry *models.ActivityLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

func testAuthService(repo *authRepoStub, activity *activityStub) *AuthService {
	return NewAuthService(repo, activity, nil, nil, AuthConfig{
		AccessTokenSecret:  "test_secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "rocksample-test",
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "areyes@example.edu",
		PasswordHash: hashOf(t, "correct horse"),
		FirstName:    "Ana",
		LastName:     "Reyes",
		Role:         models.RoleStudent,
		IsActive:     true,
	})
	activity := &activityStub{}
	svc := testAuthService(repo, activity)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "areyes@example.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, models.RoleStudent, resp.User.Role)
	require.Len(t, activity.entries, 1)
	require.Equal(t, models.ActivityLogin, activity.entries[0].ActivityType)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "areyes@example.edu",
		PasswordHash: hashOf(t, "correct horse"),
		IsActive:     true,
	})
	svc := testAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "areyes@example.edu",
		Password: "wrong",
	})
	require.Equal(t, "INVALID_CREDENTIALS", errorCode(t, err))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "areyes@example.edu",
		PasswordHash: hashOf(t, "correct horse"),
		IsActive:     false,
	})
	svc := testAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "areyes@example.edu",
		Password: "correct horse",
	})
	require.Equal(t, "ACCOUNT_INACTIVE", errorCode(t, err))
}

func TestAuthServiceSignupCreatesStudent(t *testing.T) {
	repo := newAuthRepoStub()
	svc := testAuthService(repo, nil)

	info, err := svc.Signup(context.Background(), models.SignupRequest{
		FullName: "Ben Cruz",
		Email:    "student9@gmail.com",
		Password: "pw123456",
		SchoolID: "SCH-12",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, info.Role)
	require.Equal(t, "student9", info.Username)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	require.NotEqual(t, "pw123456", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("pw123456")))
	require.Equal(t, "Ben", created.FirstName)
	require.Equal(t, "Cruz", created.LastName)
}

func TestAuthServiceSignupDuplicateEmail(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "user-1", Email: "taken@example.edu", IsActive: true})
	svc := testAuthService(repo, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		FullName: "Someone Else",
		Email:    "taken@example.edu",
		Password: "pw123456",
		SchoolID: "SCH-1",
	})
	require.Equal(t, "CONFLICT", errorCode(t, err))
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "user-1", Email: "a@example.edu", IsActive: true})
	repo.tokens["old-token"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "old-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := testAuthService(repo, nil)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	require.NotEqual(t, "old-token", resp.RefreshToken)
	require.True(t, repo.tokens["old-token"].Revoked)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	svc := testAuthService(repo, nil)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Equal(t, "UNAUTHORIZED", errorCode(t, err))
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "a@example.edu",
		PasswordHash: hashOf(t, "original"),
		IsActive:     true,
	})
	svc := testAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "nope",
		NewPassword: "fresh-password",
	})
	require.Equal(t, "FORBIDDEN", errorCode(t, err))

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "original",
		NewPassword: "fresh-password",
	})
	require.NoError(t, err)
	require.Contains(t, repo.revoked, "user-1")
}
