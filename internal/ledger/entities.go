package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// Direction is the "natureza" of a ledger entry.
type Direction string

const (
	// DirectionIncoming records money received by the church.
	DirectionIncoming Direction = "Entrada"
	// DirectionOutgoing records money spent.
	DirectionOutgoing Direction = "Saida"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// Address is the postal address of a contributor. It has no identity of its own
// and is always created and deleted together with its contributor.
type Address struct {
	Street       string
	Neighborhood string
	HouseNumber  string
	PostalCode   string
}

// ContributorAddress is an address listed on its own, keyed by its contributor.
type ContributorAddress struct {
	ContributorID uuid.UUID
	Address
}

// Contributor is a registered "dizimista".
type Contributor struct {
	ID       uuid.UUID
	FullName string
	// NationalID is the CPF. Empty means not informed; uniqueness only applies when set.
	NationalID string
	// BirthDate is optional; nil when not informed.
	BirthDate *time.Time
	Phone     string
	Address   Address
}

// Entry is a single "lançamento": one movement of money in or out.
type Entry struct {
	ID uuid.UUID
	// ContributorID is nil for entries not tied to a person (e.g. expenses).
	ContributorID *uuid.UUID
	Direction     Direction
	Category      string
	// Amount is always a positive magnitude; Direction carries the sign.
	Amount money.Amount
	Date   time.Time
	Note   string
}

// BalanceSnapshot is a recorded closing balance for a month.
type BalanceSnapshot struct {
	ID         uuid.UUID
	Period     Period
	Closing    money.Amount
	RecordedAt time.Time
}

// User is an operator allowed to log in.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
}
