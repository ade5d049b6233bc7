package result

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

type Repository interface {
	Create(ctx context.Context, w *entity.WinRecord) error
	Count(ctx context.Context) (int64, error)
	ListByEmail(ctx context.Context, email string) ([]entity.WinRecord, error)
	Leaderboard(ctx context.Context) ([]entity.LeaderboardEntry, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

type PublishInput struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	ContestID   string `json:"contestId"`
	ContestName string `json:"contestName"`
}

func (s *Service) Publish(ctx context.Context, in PublishInput) (*entity.WinRecord, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	contestID := strings.TrimSpace(in.ContestID)
	if email == "" || contestID == "" {
		return nil, apperr.Validation("email and contestId are required")
	}
	w := &entity.WinRecord{
		ID:          utilities.NewID(),
		Email:       email,
		Name:        strings.TrimSpace(in.Name),
		ContestID:   contestID,
		ContestName: strings.TrimSpace(in.ContestName),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) MyWins(ctx context.Context, email string) ([]entity.WinRecord, error) {
	return s.repo.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Leaderboard ranks accounts by wins, breaking ties by email.
func (s *Service) Leaderboard(ctx context.Context) ([]entity.LeaderboardEntry, error) {
	rows, err := s.repo.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalWins != rows[j].TotalWins {
			return rows[i].TotalWins > rows[j].TotalWins
		}
		return rows[i].Email < rows[j].Email
	})
	return rows, nil
}
