package entity

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Payment is a settled entry fee. IntentID is unique and makes settlement
// idempotent.
type Payment struct {
	ID             string    `json:"id" db:"id" bson:"_id"`
	IntentID       string    `json:"intentId" db:"intent_id" bson:"intent_id"`
	RegistrationID string    `json:"registrationId" db:"registration_id" bson:"registration_id"`
	ContestID      string    `json:"contestId" db:"contest_id" bson:"contest_id"`
	ContestName    string    `json:"contestName" db:"contest_name" bson:"contest_name"`
	CreatorEmail   string    `json:"creatorEmail" db:"creator_email" bson:"creator_email"`
	UserEmail      string    `json:"userEmail" db:"user_email" bson:"user_email"`
	Outcome        string    `json:"outcome" db:"outcome" bson:"outcome"`
	Amount         int64     `json:"amount" db:"amount" bson:"amount"`
	Currency       string    `json:"currency" db:"currency" bson:"currency"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
}

// Settlement is one request to turn a registration into a payment.
// Payer, when set, must own the registration.
type Settlement struct {
	PaymentID      string
	IntentID       string
	RegistrationID string
	Payer          string
	Currency       string
	At             time.Time
}

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrForeignRegistration = errors.New("registration belongs to another user")
	ErrIntentReused        = errors.New("intent already settled another registration")
)

// Replays returns nil when s repeats the settlement that produced p. An intent
// is bound to one registration and, for non-admin callers, to its payer.
func (p *Payment) Replays(s Settlement) error {
	if s.Payer != "" && !strings.EqualFold(p.UserEmail, s.Payer) {
		return ErrForeignRegistration
	}
	if p.RegistrationID != s.RegistrationID {
		return ErrIntentReused
	}
	return nil
}

var (
	hundred   = big.NewRat(100, 1)
	decimalRe = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)
)

// ToMinorUnits converts a decimal string to minor currency units, truncating
// anything below one minor unit: "19.99" is 1999 and "10.555" is 1055.
func ToMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	// big.Rat also takes fractions, exponents and 0x/0b/0o prefixes.
	if !decimalRe.MatchString(s) {
		return 0, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, s)
	}
	r.Mul(r, hundred)
	n := new(big.Int).Quo(r.Num(), r.Denom())
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	return n.Int64(), nil
}

// PriceToMinorUnits converts a stored price using its shortest decimal form,
// so 19.99 is read as "19.99" rather than its binary approximation.
func PriceToMinorUnits(price float64) (int64, error) {
	return ToMinorUnits(strconv.FormatFloat(price, 'f', -1, 64))
}
