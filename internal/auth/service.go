package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rentdesk/rentdesk/internal/organization"
)

// ErrInvalidKey is returned when the provided API key does not match any active user.
var ErrInvalidKey = errors.New("invalid or revoked API key")

// keyPrefix marks rentdesk API keys. The lookup prefix is the first
// prefixLen characters of the raw key.
const (
	keyPrefix = "rd_"
	prefixLen = 8
)

// Service provides authentication operations.
type Service struct {
	userRepo   UserRepository
	orgRepo    organization.Repository
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(userRepo UserRepository, orgRepo organization.Repository, bcryptCost int) *Service {
	return &Service{
		userRepo:   userRepo,
		orgRepo:    orgRepo,
		bcryptCost: bcryptCost,
	}
}

// GenerateKey creates a new API key. Returns the raw key, its lookup prefix and
// the bcrypt hash. The raw key is 32 random bytes, base64url encoded, behind "rd_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = keyPrefix + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:prefixLen]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	hash = string(hashBytes)

	return rawKey, prefix, hash, nil
}

// Authenticate resolves a raw API key to an Identity. It extracts the prefix,
// looks up candidates, and bcrypt-compares each one. A key whose organization
// no longer exists is rejected as invalid.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if len(rawKey) < prefixLen || !strings.HasPrefix(rawKey, keyPrefix) {
		return nil, ErrInvalidKey
	}

	candidates, err := s.userRepo.FindByPrefix(ctx, rawKey[:prefixLen])
	if err != nil {
		return nil, fmt.Errorf("finding users by prefix: %w", err)
	}

	for _, u := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(u.ApiKeyHash), []byte(rawKey)) == nil {
			return s.buildIdentity(ctx, &u)
		}
	}

	return nil, ErrInvalidKey
}

// BootstrapSuperuser creates the initial superuser if the users table is empty.
// Returns the raw API key (only displayed once). If users already exist, returns empty string.
func (s *Service) BootstrapSuperuser(ctx context.Context) (string, error) {
	count, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return "", fmt.Errorf("counting users: %w", err)
	}

	if count > 0 {
		return "", nil
	}

	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generating superuser key: %w", err)
	}

	user := &User{
		Name:         "superuser",
		IsSuperuser:  true,
		ApiKeyPrefix: prefix,
		ApiKeyHash:   hash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", fmt.Errorf("creating superuser: %w", err)
	}

	slog.Info("superuser created", "id", user.ID)

	return rawKey, nil
}

func (s *Service) buildIdentity(ctx context.Context, u *User) (*Identity, error) {
	identity := &Identity{
		UserID:         u.ID,
		UserName:       u.Name,
		OrganizationID: u.OrganizationID,
		IsSuperuser:    u.IsSuperuser,
	}

	if u.OrganizationID != nil {
		o, err := s.orgRepo.GetByID(ctx, *u.OrganizationID)
		if errors.Is(err, organization.ErrOrganizationNotFound) {
			slog.Warn("api key belongs to a deleted organization", "user_id", u.ID, "organization_id", *u.OrganizationID)
			return nil, ErrInvalidKey
		}
		if err != nil {
			return nil, fmt.Errorf("fetching organization for identity: %w", err)
		}
		identity.OrganizationName = &o.Name
	}

	return identity, nil
}
