package domain

import (
	"github.com/google/uuid"

	dErrors "storefront/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so that a ProductID can never be passed
// where an OrderID is expected.
//
// Invariant: values produced by the Parse* constructors are valid, non-nil UUIDs.
type (
	UserID    uuid.UUID
	SessionID uuid.UUID
	ProductID uuid.UUID
	OrderID   uuid.UUID
	CartID    uuid.UUID
)

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

// ParseUserID parses a user identifier from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseSessionID parses a session identifier from external input.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session ID")
	return SessionID(u), err
}

// ParseProductID parses a product identifier from external input.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID(s, "product ID")
	return ProductID(u), err
}

// ParseOrderID parses an order identifier from external input.
func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID(s, "order ID")
	return OrderID(u), err
}

// ParseCartID parses a cart identifier from external input.
func ParseCartID(s string) (CartID, error) {
	u, err := parseUUID(s, "cart ID")
	return CartID(u), err
}

// NewProductID, NewOrderID and friends mint fresh random identifiers.
func NewUserID() UserID       { return UserID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }
func NewProductID() ProductID { return ProductID(uuid.New()) }
func NewOrderID() OrderID     { return OrderID(uuid.New()) }
func NewCartID() CartID       { return CartID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string { return uuid.UUID(id).String() }
func (id OrderID) String() string   { return uuid.UUID(id).String() }
func (id CartID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id OrderID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CartID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets IDs appear as plain strings in JSON payloads.
func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ProductID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id OrderID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

// UnmarshalText applies the same validation as ParseProductID.
func (id *ProductID) UnmarshalText(b []byte) error {
	parsed, err := ParseProductID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
