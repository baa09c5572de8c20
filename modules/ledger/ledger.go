// Package ledger implements the settlement ledger that the coordinator
// pays renters through. The service half is an in-memory account store
// keyed by address, where an address is the hex encoded SHA-256 digest of
// the owning username, exposed over JSON-RPC on a TCP listener. The client
// half maintains the coordinator's single connection to a remote ledger.
package ledger

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/persist"
)

type (
	// An account is one balance held by the ledger.
	account struct {
		username string
		balance  float64
	}

	// A Ledger is an in-memory account store. Balances only change under
	// the mutex, so a transfer is observed either not at all or in full.
	Ledger struct {
		accounts map[string]*account

		log *persist.Logger
		mu  sync.Mutex
	}
)

// New creates an empty ledger that logs to persistDir.
func New(persistDir string) (*Ledger, error) {
	if err := os.MkdirAll(persistDir, 0700); err != nil {
		return nil, err
	}
	log, err := persist.NewLogger(filepath.Join(persistDir, logFile))
	if err != nil {
		return nil, err
	}
	return &Ledger{
		accounts: make(map[string]*account),
		log:      log,
	}, nil
}

// transactionHash derives the hash that identifies a transfer.
func transactionHash(from, to string, amount float64) string {
	amt := strconv.FormatFloat(amount, 'f', -1, 64)
	return crypto.HashAll([]byte(from), []byte(to), []byte(amt)).String()
}

// CreateAccount opens an account for a username and returns its address.
// The address is a pure function of the username, so creating the same
// username twice returns ErrAccountExists.
func (l *Ledger) CreateAccount(username string, balance float64) (string, error) {
	if balance < 0 {
		return "", modules.ErrNegativeBalance
	}
	address := modules.LedgerAddressFor(username)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[address]; exists {
		return "", modules.ErrAccountExists
	}
	l.accounts[address] = &account{username: username, balance: balance}
	l.log.Printf("created account %v for %q with starting balance %v", address, username, balance)
	return address, nil
}

// GetBalance returns the balance of an address.
func (l *Ledger) GetBalance(address string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, exists := l.accounts[address]
	if !exists {
		return 0, modules.ErrUnknownAccount
	}
	return acct.balance, nil
}

// SendMoney moves an amount between two accounts and returns a receipt for
// the transfer.
func (l *Ledger) SendMoney(from, to string, amount float64) (modules.Receipt, error) {
	if amount <= 0 {
		return modules.Receipt{}, modules.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	sender, exists := l.accounts[from]
	if !exists {
		return modules.Receipt{}, modules.ErrUnknownAccount
	}
	receiver, exists := l.accounts[to]
	if !exists {
		return modules.Receipt{}, modules.ErrUnknownAccount
	}
	if sender.balance < amount {
		return modules.Receipt{}, modules.ErrInsufficientFunds
	}
	sender.balance -= amount
	receiver.balance += amount

	receipt := modules.Receipt{
		TransactionHash: transactionHash(from, to, amount),
		Sender:          from,
		Receiver:        to,
		Amount:          amount,
		Timestamp:       time.Now().UTC(),
	}
	l.log.Printf("transferred %v from %v to %v: tx %v", amount, from, to, receipt.TransactionHash)
	return receipt, nil
}

// Close shuts the ledger down.
func (l *Ledger) Close() error {
	return l.log.Close()
}
