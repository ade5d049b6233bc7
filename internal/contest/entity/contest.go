package entity

import (
	"strings"
	"time"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Contest is a competition authored by a creator account.
type Contest struct {
	ID              string     `json:"id" db:"id" bson:"_id"`
	Name            string     `json:"name" db:"name" bson:"name"`
	Image           string     `json:"image" db:"image" bson:"image"`
	Description     string     `json:"description" db:"description" bson:"description"`
	Price           float64    `json:"price" db:"price" bson:"price"`
	PrizeMoney      float64    `json:"prizeMoney" db:"prize_money" bson:"prize_money"`
	TaskInstruction string     `json:"taskInstruction" db:"task_instruction" bson:"task_instruction"`
	Category        string     `json:"category" db:"category" bson:"category"`
	Deadline        *time.Time `json:"deadline,omitempty" db:"deadline" bson:"deadline,omitempty"`
	CreatorEmail    string     `json:"creatorEmail" db:"creator_email" bson:"creator_email"`
	CreatorName     string     `json:"creatorName" db:"creator_name" bson:"creator_name"`
	Status          string     `json:"status" db:"status" bson:"status"`
	Participants    int        `json:"participants" db:"participants" bson:"participants"`
	Comment         string     `json:"comment" db:"comment" bson:"comment"`
	WinnerName      string     `json:"winnerName,omitempty" db:"winner_name" bson:"winner_name"`
	WinnerEmail     string     `json:"winnerEmail,omitempty" db:"winner_email" bson:"winner_email"`
	WinnerImage     string     `json:"winnerImage,omitempty" db:"winner_image" bson:"winner_image"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at" bson:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

// Open reports whether registrations are still accepted at now.
func (c *Contest) Open(now time.Time) bool {
	return c.Status == StatusAccepted && (c.Deadline == nil || now.Before(*c.Deadline))
}

// Filter is a conjunction of the non-empty fields.
type Filter struct {
	Category     string
	CreatorEmail string
	Status       string
}

// Sort orders a listing by attendance; SortDefault keeps newest first.
type Sort int

const (
	SortAttendanceDesc Sort = -1
	SortDefault        Sort = 0
	SortAttendanceAsc  Sort = 1
)

// ParseSort accepts the caller's direction sign: 1/asc or -1/desc.
func ParseSort(raw string) (Sort, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SortDefault, true
	case "1", "asc":
		return SortAttendanceAsc, true
	case "-1", "desc":
		return SortAttendanceDesc, true
	}
	return SortDefault, false
}

type ListQuery struct {
	Filter
	Sort   Sort
	Limit  int
	Offset int
}

// Patch is the allow-list of fields a creator may change. Nil fields are
// left untouched.
type Patch struct {
	Name            *string    `json:"name"`
	Image           *string    `json:"image"`
	Description     *string    `json:"description"`
	Price           *float64   `json:"price"`
	PrizeMoney      *float64   `json:"prizeMoney"`
	TaskInstruction *string    `json:"taskInstruction"`
	Category        *string    `json:"category"`
	Deadline        *time.Time `json:"deadline"`
}

// Fields maps the set fields to their stored column names.
func (p Patch) Fields() map[string]any {
	f := map[string]any{}
	if p.Name != nil {
		f["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Image != nil {
		f["image"] = *p.Image
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.Price != nil {
		f["price"] = *p.Price
	}
	if p.PrizeMoney != nil {
		f["prize_money"] = *p.PrizeMoney
	}
	if p.TaskInstruction != nil {
		f["task_instruction"] = *p.TaskInstruction
	}
	if p.Category != nil {
		f["category"] = strings.TrimSpace(*p.Category)
	}
	if p.Deadline != nil {
		f["deadline"] = p.Deadline.UTC()
	}
	return f
}

// Winner is the advertised result shown on a contest.
type Winner struct {
	WinnerName  string `json:"winnerName"`
	WinnerEmail string `json:"winnerEmail"`
	WinnerImage string `json:"winnerImage"`
}
