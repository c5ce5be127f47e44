package models

import "time"

// TransactionKind discriminates ledger entries.
type TransactionKind string

const (
	TransactionBuy  TransactionKind = "buy"
	TransactionSell TransactionKind = "sell"
)

// Transaction is one immutable ledger entry. Quantity is in asset units,
// Price is the quote at execution time.
type Transaction struct {
	Kind     TransactionKind
	Symbol   string
	Quantity float64
	Price    float64
	Time     time.Time
}

// Holding is a user's position in one asset. AverageCost is the weighted
// average price paid per unit and is only meaningful while Quantity > 0.
type Holding struct {
	Symbol      string
	Quantity    float64
	AverageCost float64
}

// User is the portfolio side of an account. Auth, profile and support
// concerns live outside this service.
type User struct {
	ID           string
	Balance      float64 // simulated cash, never negative after a successful trade
	Holdings     []Holding
	Transactions []Transaction
	CreatedAt    time.Time
}

// Holding returns a pointer into Holdings for symbol, or nil.
func (u *User) Holding(symbol string) *Holding {
	for i := range u.Holdings {
		if u.Holdings[i].Symbol == symbol {
			return &u.Holdings[i]
		}
	}
	return nil
}

// RemoveHolding drops the position for symbol, if present.
func (u *User) RemoveHolding(symbol string) {
	for i := range u.Holdings {
		if u.Holdings[i].Symbol == symbol {
			u.Holdings = append(u.Holdings[:i], u.Holdings[i+1:]...)
			return
		}
	}
}
