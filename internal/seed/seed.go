// Package seed turns tabular account data into user records ready for
// insertion. The CSV convention is email,password with an optional role
// column; role derivation is configurable because the historical data
// encodes roles in email substrings.
package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// RoleMode selects how account roles are determined.
type RoleMode string

const (
	// RoleModeInfer derives the role from substrings of the email address.
	RoleModeInfer RoleMode = "infer"
	// RoleModeColumn reads the role from a third CSV column.
	RoleModeColumn RoleMode = "column"
)

// Account is one parsed input row.
type Account struct {
	Email    string
	Password string
	Role     models.UserRole
}

// ParseAccounts reads email,password[,role] rows. A header row whose first
// field is "email" is skipped. Blank lines are ignored.
func ParseAccounts(r io.Reader, mode RoleMode) ([]Account, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var accounts []Account
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse accounts csv: %w", err)
		}
		line++

		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "email") {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected at least email and password", line)
		}

		email := strings.TrimSpace(strings.ToLower(record[0]))
		password := record[1]
		if email == "" || password == "" {
			return nil, fmt.Errorf("line %d: email and password must be non-empty", line)
		}

		role, err := resolveRole(mode, email, record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		accounts = append(accounts, Account{Email: email, Password: password, Role: role})
	}
	return accounts, nil
}

func resolveRole(mode RoleMode, email string, record []string) (models.UserRole, error) {
	switch mode {
	case RoleModeColumn:
		if len(record) < 3 {
			return "", fmt.Errorf("role column is missing")
		}
		role := models.UserRole(strings.TrimSpace(strings.ToLower(record[2])))
		if !role.Valid() {
			return "", fmt.Errorf("unknown role %q", record[2])
		}
		return role, nil
	case RoleModeInfer, "":
		return DeriveRole(email), nil
	default:
		return "", fmt.Errorf("unknown role mode %q", mode)
	}
}

// DeriveRole maps an email address onto a role by substring convention:
// "admin" wins over "personnel"/"staff", everything else is a student.
func DeriveRole(email string) models.UserRole {
	lowered := strings.ToLower(email)
	switch {
	case strings.Contains(lowered, "admin"):
		return models.RoleAdmin
	case strings.Contains(lowered, "personnel"), strings.Contains(lowered, "staff"):
		return models.RolePersonnel
	default:
		return models.RoleStudent
	}
}

// BuildUsers hashes credentials and fills in usernames, names, and school
// identifiers. Students are numbered STU-<year>-<n> in input order.
func BuildUsers(accounts []Account, now time.Time) ([]models.User, error) {
	users := make([]models.User, 0, len(accounts))
	studentSeq := 0
	for _, acc := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", acc.Email, err)
		}

		username := usernamePart(acc.Email)
		user := models.User{
			ID:           uuid.NewString(),
			Username:     username,
			Email:        acc.Email,
			PasswordHash: string(hash),
			FirstName:    displayName(username),
			Role:         acc.Role,
			IsActive:     true,
			CreatedAt:    now.UTC(),
			UpdatedAt:    now.UTC(),
		}
		if acc.Role == models.RoleStudent {
			studentSeq++
			schoolID := fmt.Sprintf("STU-%d-%d", now.Year(), studentSeq)
			user.SchoolID = &schoolID
		}
		users = append(users, user)
	}
	return users, nil
}

func usernamePart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

func displayName(username string) string {
	cleaned := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(username)
	return strings.Title(cleaned) //nolint:staticcheck
}
