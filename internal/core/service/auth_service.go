package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

// registerCost is the bcrypt cost for self-registered accounts. Higher than
// the default because registration is rare and interactive.
const registerCost = 12

// AuthService implements registration and login.
type AuthService struct {
	users        ports.UserRepository
	institutions ports.InstitutionRepository
	audit        ports.AuditRecorder
	jwtSecret    string
	tokenTTL     time.Duration
}

func NewAuthService(
	users ports.UserRepository,
	institutions ports.InstitutionRepository,
	audit ports.AuditRecorder,
	jwtSecret string,
	tokenTTL time.Duration,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:        users,
		institutions: institutions,
		audit:        audit,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
	}
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" || input.Role == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if len(input.Username) < 3 || !domain.ValidRole(input.Role) {
		return nil, domain.ErrInvalidCredentials
	}
	if input.Role == domain.RoleAdmin && strings.TrimSpace(input.InstitutionName) == "" {
		return nil, domain.ErrInstitutionNotFound
	}
	if err := checkPasswordPolicy(input.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), registerCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if input.Role == domain.RoleAdmin {
		inst := &domain.Institution{
			Name:      strings.TrimSpace(input.InstitutionName),
			AdminID:   created.ID,
			Status:    "active",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.institutions.Create(ctx, inst); err != nil {
			return nil, fmt.Errorf("create institution: %w", err)
		}
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionRegister,
		UserID:  &created.ID,
		Details: fmt.Sprintf("new %s user registered: %s", created.Role, created.Username),
	})

	return created, nil
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *domain.User, error) {
	if identifier == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	// A missing user and a wrong password are indistinguishable to the caller.
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionLogin,
		UserID:  &user.ID,
		Details: fmt.Sprintf("user %s logged in successfully", user.Username),
	})

	return token, user, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// checkPasswordPolicy enforces the minimum policy: at least 8 characters with
// one lowercase letter, one uppercase letter, and one digit.
func checkPasswordPolicy(password string) error {
	if len(password) < 8 {
		return domain.ErrWeakPassword
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return domain.ErrWeakPassword
	}
	return nil
}
