package result

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result/entity"
)

type MockRepository struct {
	CreateFunc      func(ctx context.Context, w *entity.WinRecord) error
	CountFunc       func(ctx context.Context) (int64, error)
	ListByEmailFunc func(ctx context.Context, email string) ([]entity.WinRecord, error)
	LeaderboardFunc func(ctx context.Context) ([]entity.LeaderboardEntry, error)
}

func (m *MockRepository) Create(ctx context.Context, w *entity.WinRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, w)
	}
	return nil
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockRepository) ListByEmail(ctx context.Context, email string) ([]entity.WinRecord, error) {
	if m.ListByEmailFunc != nil {
		return m.ListByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockRepository) Leaderboard(ctx context.Context) ([]entity.LeaderboardEntry, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(ctx)
	}
	return nil, nil
}

func TestLeaderboard_TieBreaksOnEmail(t *testing.T) {
	svc := NewService(&MockRepository{
		LeaderboardFunc: func(ctx context.Context) ([]entity.LeaderboardEntry, error) {
			return []entity.LeaderboardEntry{
				{Email: "c@example.com", TotalWins: 2},
				{Email: "z@example.com", TotalWins: 5},
				{Email: "a@example.com", TotalWins: 2},
				{Email: "b@example.com", TotalWins: 1},
			}, nil
		},
	})
	got, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []entity.LeaderboardEntry{
		{Email: "z@example.com", TotalWins: 5},
		{Email: "a@example.com", TotalWins: 2},
		{Email: "c@example.com", TotalWins: 2},
		{Email: "b@example.com", TotalWins: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPublish(t *testing.T) {
	var saved *entity.WinRecord
	svc := NewService(&MockRepository{
		CreateFunc: func(ctx context.Context, w *entity.WinRecord) error {
			saved = w
			return nil
		},
	})
	w, err := svc.Publish(context.Background(), PublishInput{Email: " Winner@Example.com ", ContestID: "c1", ContestName: "Logo"})
	if err != nil {
		t.Fatal(err)
	}
	if saved != w || w.Email != "winner@example.com" || w.ID == "" {
		t.Errorf("unexpected record %+v", w)
	}
	if _, err := svc.Publish(context.Background(), PublishInput{Email: "x@example.com"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error without contestId, got %v", err)
	}
}
