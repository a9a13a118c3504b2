package seed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

func TestParseAccountsInfersRoles(t *testing.T) {
	input := strings.NewReader(
		"email,password\n" +
			"admin1@gmail.com,adminpw\n" +
			"personnel2@gmail.com,staffpw\n" +
			"student9@gmail.com,pw123\n")

	accounts, err := ParseAccounts(input, RoleModeInfer)
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	require.Equal(t, models.RoleAdmin, accounts[0].Role)
	require.Equal(t, models.RolePersonnel, accounts[1].Role)
	require.Equal(t, models.RoleStudent, accounts[2].Role)
}

func TestParseAccountsColumnMode(t *testing.T) {
	input := strings.NewReader("alice@example.com,secret,personnel\n")

	accounts, err := ParseAccounts(input, RoleModeColumn)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, models.RolePersonnel, accounts[0].Role)
}

func TestParseAccountsColumnModeRejectsUnknownRole(t *testing.T) {
	input := strings.NewReader("alice@example.com,secret,superuser\n")

	_, err := ParseAccounts(input, RoleModeColumn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown role")
}

func TestDeriveRole(t *testing.T) {
	require.Equal(t, models.RoleAdmin, DeriveRole("admin@school.edu"))
	require.Equal(t, models.RolePersonnel, DeriveRole("staff3@school.edu"))
	require.Equal(t, models.RoleStudent, DeriveRole("student9@gmail.com"))
	require.Equal(t, models.RoleStudent, DeriveRole("jdoe@gmail.com"))
}

func TestBuildUsersHashesPasswords(t *testing.T) {
	accounts := []Account{
		{Email: "student9@gmail.com", Password: "pw123", Role: models.RoleStudent},
	}

	users, err := BuildUsers(accounts, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, users, 1)

	user := users[0]
	require.Equal(t, models.RoleStudent, user.Role)
	require.Equal(t, "student9", user.Username)
	require.NotEqual(t, "pw123", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123")))
	require.NotNil(t, user.SchoolID)
	require.Equal(t, "STU-2025-1", *user.SchoolID)
}

func TestBuildUsersNumbersStudentsOnly(t *testing.T) {
	accounts := []Account{
		{Email: "admin@school.edu", Password: "a", Role: models.RoleAdmin},
		{Email: "s1@gmail.com", Password: "b", Role: models.RoleStudent},
		{Email: "s2@gmail.com", Password: "c", Role: models.RoleStudent},
	}

	users, err := BuildUsers(accounts, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Nil(t, users[0].SchoolID)
	require.Equal(t, "STU-2025-1", *users[1].SchoolID)
	require.Equal(t, "STU-2025-2", *users[2].SchoolID)
}
