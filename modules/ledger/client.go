package ledger

import (
	"context"
	"net"

	"github.com/ScatterLabs/Scatter/modules"

	"github.com/ethereum/go-ethereum/rpc"
	"gitlab.com/NebulousLabs/errors"
)

// A Client settles payments against a remote ledger service over a single
// TCP connection held for the client's lifetime.
type Client struct {
	client *rpc.Client
	conn   net.Conn
}

var _ modules.LedgerClient = (*Client)(nil)

// Dial connects to the ledger service at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, errors.AddContext(err, "could not reach the ledger service")
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	rpcClient, err := rpc.DialIO(ctx, conn, conn)
	if err != nil {
		return nil, errors.Compose(err, conn.Close())
	}
	return &Client{client: rpcClient, conn: conn}, nil
}

// recognizeError maps the text of an error returned over the wire back
// onto the module's sentinel errors. Error identity does not survive the
// JSON-RPC boundary, only the message does.
func recognizeError(err error) error {
	if err == nil {
		return nil
	}
	sentinels := []error{
		modules.ErrAccountExists,
		modules.ErrUnknownAccount,
		modules.ErrInsufficientFunds,
		modules.ErrInvalidAmount,
		modules.ErrNegativeBalance,
	}
	for _, sentinel := range sentinels {
		if err.Error() == sentinel.Error() {
			return sentinel
		}
	}
	return err
}

// CreateAccount registers a username with the ledger and returns the
// account's address.
func (c *Client) CreateAccount(username string, balance float64) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	var address string
	err := c.client.CallContext(ctx, &address, "ledger_createAccount", username, balance)
	return address, recognizeError(err)
}

// Balance returns the balance of an address.
func (c *Client) Balance(address string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	var balance float64
	err := c.client.CallContext(ctx, &balance, "ledger_getBalance", address)
	return balance, recognizeError(err)
}

// SendMoney transfers an amount between two addresses and returns the
// ledger's receipt.
func (c *Client) SendMoney(from, to string, amount float64) (modules.Receipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	var receipt modules.Receipt
	err := c.client.CallContext(ctx, &receipt, "ledger_sendMoney", from, to, amount)
	return receipt, recognizeError(err)
}

// Close tears down the connection to the ledger. The TCP connection is
// closed first: the RPC client was built over raw IO with rpc.DialIO, so
// it cannot close the connection itself, and its Close blocks until the
// read loop observes the connection dying.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.client.Close()
	return err
}
