package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

// Repository is the catalog storage. Misses surface as database.ErrNoRecord.
type Repository interface {
	Create(ctx context.Context, c *entity.Contest) error
	Get(ctx context.Context, id string) (*entity.Contest, error)
	List(ctx context.Context, q entity.ListQuery) ([]entity.Contest, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	Update(ctx context.Context, id string, fields map[string]any) (*entity.Contest, error)
	Delete(ctx context.Context, id string) error
	TopByAttendance(ctx context.Context, n int) ([]entity.Contest, error)
	WithWinners(ctx context.Context, limit int) ([]entity.Contest, error)
	Upcoming(ctx context.Context, after time.Time, limit int) ([]entity.Contest, error)
}

var (
	ErrContestNotFound = fmt.Errorf("contest %w", apperr.ErrNotFound)
	ErrNotOwner        = fmt.Errorf("%w: only the contest creator or an admin may change it", apperr.ErrForbidden)
)

const (
	DefaultPopular  = 3
	DefaultWinners  = 6
	DefaultUpcoming = 6
	maxWinners      = 50
	maxCommentLen   = 2000
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// CreateInput is what a creator submits; ownership and status are server-set.
type CreateInput struct {
	Name            string     `json:"name"`
	Image           string     `json:"image"`
	Description     string     `json:"description"`
	Price           float64    `json:"price"`
	PrizeMoney      float64    `json:"prizeMoney"`
	TaskInstruction string     `json:"taskInstruction"`
	Category        string     `json:"category"`
	Deadline        *time.Time `json:"deadline"`
	CreatorName     string     `json:"creatorName"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*entity.Contest, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	switch {
	case name == "":
		return nil, apperr.Validation("name is required")
	case category == "":
		return nil, apperr.Validation("category is required")
	case in.Price < 0:
		return nil, apperr.Validation("price must not be negative")
	case in.PrizeMoney < 0:
		return nil, apperr.Validation("prizeMoney must not be negative")
	}
	now := s.now().UTC()
	c := &entity.Contest{
		ID:              utilities.NewID(),
		Name:            name,
		Image:           in.Image,
		Description:     in.Description,
		Price:           in.Price,
		PrizeMoney:      in.PrizeMoney,
		TaskInstruction: in.TaskInstruction,
		Category:        category,
		CreatorEmail:    p.Email,
		CreatorName:     strings.TrimSpace(in.CreatorName),
		Status:          entity.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Deadline != nil {
		d := in.Deadline.UTC()
		c.Deadline = &d
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListResult is the catalog page plus the accepted-contest total.
type ListResult struct {
	AllContest   []entity.Contest `json:"allContest"`
	ContestCount int64            `json:"contestCount"`
}

func (s *Service) List(ctx context.Context, f entity.Filter, sort entity.Sort, page utilities.Page) (*ListResult, error) {
	if f.Status != "" && f.Status != entity.StatusPending && f.Status != entity.StatusAccepted {
		return nil, apperr.Validation("status must be one of pending, accepted")
	}
	items, err := s.repo.List(ctx, entity.ListQuery{Filter: f, Sort: sort, Limit: page.Size, Offset: page.Offset()})
	if err != nil {
		return nil, err
	}
	n, err := s.repo.CountByStatus(ctx, entity.StatusAccepted)
	if err != nil {
		return nil, err
	}
	return &ListResult{AllContest: items, ContestCount: n}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Contest, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// Update applies an allow-listed patch on behalf of the owner or an admin.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, patch entity.Patch) (*entity.Contest, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, apperr.Validation("no updatable fields supplied")
	}
	if v, ok := fields["name"]; ok && v == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	if v, ok := fields["category"]; ok && v == "" {
		return nil, apperr.Validation("category must not be empty")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, apperr.Validation("price must not be negative")
	}
	if patch.PrizeMoney != nil && *patch.PrizeMoney < 0 {
		return nil, apperr.Validation("prizeMoney must not be negative")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !strings.EqualFold(c.CreatorEmail, p.Email) {
		return nil, ErrNotOwner
	}
	return s.update(ctx, id, fields)
}

func (s *Service) Approve(ctx context.Context, id string) (*entity.Contest, error) {
	return s.update(ctx, id, map[string]any{"status": entity.StatusAccepted})
}

func (s *Service) SetComment(ctx context.Context, id, text string) (*entity.Contest, error) {
	if len(text) > maxCommentLen {
		return nil, apperr.Validation("comment must be at most %d characters", maxCommentLen)
	}
	return s.update(ctx, id, map[string]any{"comment": text})
}

func (s *Service) DeclareWinner(ctx context.Context, id string, w entity.Winner) (*entity.Contest, error) {
	name := strings.TrimSpace(w.WinnerName)
	if name == "" {
		return nil, apperr.Validation("winnerName is required")
	}
	return s.update(ctx, id, map[string]any{
		"winner_name":  name,
		"winner_email": strings.ToLower(strings.TrimSpace(w.WinnerEmail)),
		"winner_image": w.WinnerImage,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return mapErr(s.repo.Delete(ctx, id))
}

// TopByAttendance returns the n most attended accepted contests.
func (s *Service) TopByAttendance(ctx context.Context, n int) ([]entity.Contest, error) {
	if n <= 0 {
		n = DefaultPopular
	}
	return s.repo.TopByAttendance(ctx, clamp(n, 1, maxWinners))
}

// AdvertisedWinners returns the most recently decided contests.
func (s *Service) AdvertisedWinners(ctx context.Context, limit int) ([]entity.Contest, error) {
	return s.repo.WithWinners(ctx, clamp(limit, 1, maxWinners))
}

// Upcoming returns accepted contests whose deadline is still ahead, soonest
// first. Contests without a deadline are not listed.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]entity.Contest, error) {
	return s.repo.Upcoming(ctx, s.now().UTC(), clamp(limit, 1, maxWinners))
}

func (s *Service) update(ctx context.Context, id string, fields map[string]any) (*entity.Contest, error) {
	c, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mapErr(err error) error {
	if errors.Is(err, database.ErrNoRecord) {
		return ErrContestNotFound
	}
	return err
}
