package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

type userRepoStub struct {
	byID    map[string]*models.User
	updated []*models.User
	admins  []models.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{byID: map[string]*models.User{}}
}

func (r *userRepoStub) add(user *models.User) {
	r.byID[user.ID] = user
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	r.add(user)
	return nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.byID[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.byID {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range r.byID {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return r.admins, len(r.admins), nil
}

func (r *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.byID[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	r.byID[user.ID] = &clone
	r.updated = append(r.updated, &clone)
	return nil
}

func (r *userRepoStub) SetActive(ctx context.Context, id string, active bool) error {
	user, ok := r.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.IsActive = active
	return nil
}

func (r *userRepoStub) HardDelete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *userRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func TestUserServiceSelfUpdateProfile(t *testing.T) {
	repo := newUserRepoStub()
	repo.add(&models.User{ID: "student-1", Username: "rudi", Email: "rudi@gmail.com", Role: models.RoleStudent})
	svc := NewUserService(repo, nil, nil)

	first := "Rudi"
	updated, err := svc.Update(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent}, "student-1",
		models.UserUpdateRequest{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Rudi", updated.FirstName)
	require.Equal(t, models.RoleStudent, updated.Role)
	require.Len(t, repo.updated, 1)
}

func TestUserServiceSelfUpdateCannotChangeRole(t *testing.T) {
	repo := newUserRepoStub()
	repo.add(&models.User{ID: "student-1", Username: "rudi", Role: models.RoleStudent})
	svc := NewUserService(repo, nil, nil)

	role := models.RoleAdmin
	_, err := svc.Update(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent}, "student-1",
		models.UserUpdateRequest{Role: &role})
	require.Equal(t, "FORBIDDEN", errorCode(t, err))
	require.Empty(t, repo.updated)
}

func TestUserServiceUpdateOtherProfileForbidden(t *testing.T) {
	repo := newUserRepoStub()
	repo.add(&models.User{ID: "student-1", Username: "rudi", Role: models.RoleStudent})
	svc := NewUserService(repo, nil, nil)

	first := "Eva"
	_, err := svc.Update(context.Background(),
		Actor{ID: "student-2", Role: models.RoleStudent}, "student-1",
		models.UserUpdateRequest{FirstName: &first})
	require.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestUserServiceAdminCanUpdateAnyAccount(t *testing.T) {
	repo := newUserRepoStub()
	repo.add(&models.User{ID: "student-1", Username: "rudi", Role: models.RoleStudent})
	svc := NewUserService(repo, nil, nil)

	role := models.RolePersonnel
	updated, err := svc.Update(context.Background(),
		Actor{ID: "admin-1", Role: models.RoleAdmin}, "student-1",
		models.UserUpdateRequest{Role: &role})
	require.NoError(t, err)
	require.Equal(t, models.RolePersonnel, updated.Role)
}

func TestUserServiceDemoteLastAdminRefused(t *testing.T) {
	repo := newUserRepoStub()
	repo.add(&models.User{ID: "admin-1", Username: "boss", Role: models.RoleAdmin, IsActive: true})
	repo.admins = []models.User{{ID: "admin-1", Role: models.RoleAdmin}}
	svc := NewUserService(repo, nil, nil)

	role := models.RoleStudent
	_, err := svc.Update(context.Background(),
		Actor{ID: "admin-1", Role: models.RoleAdmin}, "admin-1",
		models.UserUpdateRequest{Role: &role})
	require.Equal(t, "PRECONDITION_FAILED", errorCode(t, err))
}
