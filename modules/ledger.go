package modules

import (
	"time"

	"github.com/ScatterLabs/Scatter/crypto"

	"gitlab.com/NebulousLabs/errors"
)

const (
	// LedgerDir is the name of the directory that is used to store the
	// ledger's persistent data.
	LedgerDir = "ledger"

	// LedgerNamespace is the JSON-RPC namespace that the ledger service
	// registers its methods under. Method names on the wire look like
	// "ledger_sendMoney".
	LedgerNamespace = "ledger"
)

var (
	// ErrAccountExists is returned when creating an account for a username
	// that already has one.
	ErrAccountExists = errors.New("account already exists")

	// ErrUnknownAccount is returned when a transfer or balance query names
	// an address with no account.
	ErrUnknownAccount = errors.New("account does not exist")

	// ErrInsufficientFunds is returned when a transfer exceeds the
	// sender's balance.
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")

	// ErrInvalidAmount is returned when a transfer amount is zero or
	// negative.
	ErrInvalidAmount = errors.New("transfer amount must be positive")

	// ErrNegativeBalance is returned when an account is created with a
	// negative starting balance.
	ErrNegativeBalance = errors.New("starting balance cannot be negative")
)

type (
	// A Receipt is the ledger's record of one settled transfer.
	Receipt struct {
		TransactionHash string    `json:"transaction_hash"`
		Sender          string    `json:"sender"`
		Receiver        string    `json:"receiver"`
		Amount          float64   `json:"amount"`
		Timestamp       time.Time `json:"timestamp"`
	}

	// A LedgerClient settles storage payments against an external ledger
	// service. The coordinator treats the ledger as optional: a nil client
	// disables settlement but no other functionality.
	LedgerClient interface {
		// CreateAccount registers a username with the ledger and returns
		// the account's address. Creating an account that already exists
		// returns ErrAccountExists.
		CreateAccount(username string, balance float64) (string, error)

		// Balance returns the balance of an address.
		Balance(address string) (float64, error)

		// SendMoney transfers an amount between two addresses and returns
		// the ledger's receipt.
		SendMoney(from, to string, amount float64) (Receipt, error)

		// Close releases the connection to the ledger.
		Close() error
	}
)

// LedgerAddressFor derives the ledger address of a username: the hex
// encoded SHA-256 digest of the name. Address derivation is part of the
// ledger's wire contract, so holders of a username can recompute their
// address without asking the ledger.
func LedgerAddressFor(username string) string {
	return crypto.HashBytes([]byte(username)).String()
}
