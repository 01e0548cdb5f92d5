package domain

import (
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money represents a monetary value with currency
// Amount is stored in smallest currency unit (cents) to avoid floating point issues
type Money struct {
	amount   int64  // Stored in cents (or smallest currency unit)
	currency string // ISO 4217 currency code (USD, EUR, etc.)
}

// Errors
var (
	ErrInvalidCurrency   = errors.New("invalid currency code")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
	ErrInvalidMultiplier = errors.New("multiplier must not be negative")
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")
)

// NewMoney creates a new Money value object
// amount is in smallest currency unit (cents) and may be negative
func NewMoney(amount int64, currency string) (Money, error) {
	// Currency code must be 3 letters (ISO 4217)
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}

	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// ZeroMoney creates a zero money value
func ZeroMoney(currency string) Money {
	return Money{
		amount:   0,
		currency: currency,
	}
}

// Amount returns the amount in smallest currency unit (cents)
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the ISO 4217 currency code
func (m Money) Currency() string {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsPositive returns true if the amount is greater than zero
func (m Money) IsPositive() bool {
	return m.amount > 0
}

// IsNegative returns true if the amount is less than zero
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Add adds two money values (must have same currency)
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}

	return Money{
		amount:   m.amount + other.amount,
		currency: m.currency,
	}, nil
}

// Subtract subtracts other from this money (must have same currency)
// The result may be negative; callers decide whether that is legal
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}

	return Money{
		amount:   m.amount - other.amount,
		currency: m.currency,
	}, nil
}

// Multiply multiplies the amount by a quantity
func (m Money) Multiply(qty int) (Money, error) {
	if qty < 0 {
		return Money{}, ErrInvalidMultiplier
	}

	return Money{
		amount:   m.amount * int64(qty),
		currency: m.currency,
	}, nil
}

// Percent returns the given percentage of the amount, rounded half away from zero
// Used for discount and tax line calculations
func (m Money) Percent(pct float64) (Money, error) {
	if pct < 0 || pct > 100 {
		return Money{}, ErrInvalidPercentage
	}

	return Money{
		amount:   int64(math.Round(float64(m.amount) * pct / 100.0)),
		currency: m.currency,
	}, nil
}

// Equals checks if two money values are equal (amount and currency)
func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// GreaterThan checks if this money is greater than other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, ErrCurrencyMismatch
	}

	return m.amount > other.amount, nil
}

// LessThan checks if this money is less than other
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, ErrCurrencyMismatch
	}

	return m.amount < other.amount, nil
}

// String returns a string representation of the money
func (m Money) String() string {
	units := float64(m.amount) / 100.0
	return fmt.Sprintf("%.2f %s", units, m.currency)
}

// MarshalBSONValue implements bson.ValueMarshaler
func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	doc := primitive.D{
		{Key: "amount", Value: m.amount},
		{Key: "currency", Value: m.currency},
	}
	return bson.MarshalValue(doc)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var doc primitive.D
	if err := bson.UnmarshalValue(t, data, &doc); err != nil {
		return err
	}

	docMap := doc.Map()
	if amount, ok := docMap["amount"].(int64); ok {
		m.amount = amount
	}
	if currency, ok := docMap["currency"].(string); ok {
		m.currency = currency
	}

	return nil
}
