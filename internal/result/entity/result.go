package entity

import "time"

// WinRecord marks one contest won by one account.
type WinRecord struct {
	ID          string    `json:"id" db:"id" bson:"_id"`
	Email       string    `json:"email" db:"email" bson:"email"`
	Name        string    `json:"name" db:"name" bson:"name"`
	ContestID   string    `json:"contestId" db:"contest_id" bson:"contest_id"`
	ContestName string    `json:"contestName" db:"contest_name" bson:"contest_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
}

type LeaderboardEntry struct {
	Email     string `json:"email" db:"email" bson:"email"`
	TotalWins int64  `json:"totalWins" db:"total_wins" bson:"total_wins"`
}
