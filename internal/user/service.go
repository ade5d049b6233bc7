package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repository is the storage the directory needs. Implementations return
// database.ErrNoRecord on misses and database.ErrDuplicate on email clashes.
type Repository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]entity.User, error)
	UpdateProfile(ctx context.Context, id, name, photoURL string) (*entity.User, error)
	UpdateRole(ctx context.Context, id, role string) (*entity.User, error)
	UpdateStatus(ctx context.Context, id, status string) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrUserNotFound   = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrBadCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	ErrBlocked        = fmt.Errorf("%w: account blocked", apperr.ErrForbidden)
)

const minPasswordLen = 6

// Service is the user directory.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	now    func() time.Time
}

func NewService(r Repository, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: r, hasher: hasher, now: time.Now}
}

// CreateInput is the accepted shape of a new account.
type CreateInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
	Password string `json:"password"`
}

// Create inserts the account unless the email is already present, in which
// case the stored record is returned untouched with created=false.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.User, bool, error) {
	email := entity.NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return nil, false, apperr.Validation("a valid email is required")
	}
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, database.ErrNoRecord) {
		return nil, false, err
	}

	now := s.now().UTC()
	u := &entity.User{
		ID:        utilities.NewID(),
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		PhotoURL:  strings.TrimSpace(in.PhotoURL),
		Role:      entity.RoleUser,
		Status:    entity.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLen {
			return nil, false, apperr.Validation("password must be at least %d characters", minPasswordLen)
		}
		h, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, false, err
		}
		u.PasswordHash = h
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// lost a race with a concurrent first sign-in
			existing, gerr := s.repo.GetByEmail(ctx, email)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return u, true, nil
}

// List returns one page of accounts.
func (s *Service) List(ctx context.Context, p utilities.Page) ([]entity.User, error) {
	return s.repo.List(ctx, p.Size, p.Offset())
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.repo.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return nil, s.mapErr(err)
	}
	return u, nil
}

func (s *Service) Role(ctx context.Context, email string) (string, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (s *Service) Status(ctx context.Context, email string) (string, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.Status, nil
}

// Access satisfies auth.Directory.
func (s *Service) Access(ctx context.Context, email string) (string, string, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	return u.Role, u.Status, nil
}

// Authenticate decides whether a token may be issued for email. Accounts
// with a stored password must present it. An unknown email passes: its
// token only opens the profile upsert until the account exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) error {
	u, err := s.repo.GetByEmail(ctx, entity.NormalizeEmail(email))
	if errors.Is(err, database.ErrNoRecord) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.Status == entity.StatusBlocked {
		return ErrBlocked
	}
	if u.PasswordHash != "" && !s.hasher.Verify(u.PasswordHash, password) {
		return ErrBadCredentials
	}
	return nil
}

// ProfileInput carries the self-editable fields; nil leaves a field as is.
type ProfileInput struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoURL"`
}

// UpsertProfile updates the caller's profile, creating the account on first
// sight.
func (s *Service) UpsertProfile(ctx context.Context, email string, in ProfileInput) (*entity.User, bool, error) {
	email = entity.NormalizeEmail(email)
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNoRecord) {
		ci := CreateInput{Email: email}
		if in.Name != nil {
			ci.Name = *in.Name
		}
		if in.PhotoURL != nil {
			ci.PhotoURL = *in.PhotoURL
		}
		return s.Create(ctx, ci)
	}
	if err != nil {
		return nil, false, err
	}
	name, photo := u.Name, u.PhotoURL
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if in.PhotoURL != nil {
		photo = strings.TrimSpace(*in.PhotoURL)
	}
	updated, err := s.repo.UpdateProfile(ctx, u.ID, name, photo)
	if err != nil {
		return nil, false, s.mapErr(err)
	}
	return updated, false, nil
}

func (s *Service) UpdateRole(ctx context.Context, id, role string) (*entity.User, error) {
	if !entity.ValidRole(role) {
		return nil, apperr.Validation("role must be one of user, creator, admin")
	}
	u, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return u, nil
}

// SetRoleByEmail is used by the operator CLI to bootstrap admins.
func (s *Service) SetRoleByEmail(ctx context.Context, email, role string) (*entity.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.UpdateRole(ctx, u.ID, role)
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*entity.User, error) {
	if !entity.ValidStatus(status) {
		return nil, apperr.Validation("status must be one of active, blocked")
	}
	u, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mapErr(s.repo.Delete(ctx, id))
}

func (s *Service) mapErr(err error) error {
	if errors.Is(err, database.ErrNoRecord) {
		return ErrUserNotFound
	}
	return err
}
