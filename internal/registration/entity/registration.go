package entity

import "time"

const MaxOutcomeLen = 32

// Registration is a pending entry into a contest. It is removed once the
// entry fee settles; Paid marks the view rebuilt from that payment.
type Registration struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	ContestID    string    `json:"contestId" db:"contest_id" bson:"contest_id"`
	ContestName  string    `json:"contestName" db:"contest_name" bson:"contest_name"`
	CreatorEmail string    `json:"creatorEmail" db:"creator_email" bson:"creator_email"`
	UserEmail    string    `json:"userEmail" db:"user_email" bson:"user_email"`
	UserName     string    `json:"userName" db:"user_name" bson:"user_name"`
	Price        float64   `json:"price" db:"price" bson:"price"`
	Outcome      string    `json:"outcome" db:"outcome" bson:"outcome"`
	Paid         bool      `json:"paid" db:"-" bson:"-"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
}
