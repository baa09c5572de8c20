package ledger

import (
	"net"

	"github.com/ScatterLabs/Scatter/modules"

	"github.com/ethereum/go-ethereum/rpc"
	"gitlab.com/NebulousLabs/errors"
)

type (
	// ledgerAPI is the receiver registered under the ledger namespace. It
	// exists so that only the three wire operations are reachable over
	// RPC, not lifecycle methods like Close.
	ledgerAPI struct {
		ledger *Ledger
	}

	// A Server serves a ledger over JSON-RPC on a TCP listener.
	Server struct {
		ledger   *Ledger
		listener net.Listener
		rpc      *rpc.Server
	}
)

// CreateAccount handles ledger_createAccount.
func (api *ledgerAPI) CreateAccount(username string, balance float64) (string, error) {
	return api.ledger.CreateAccount(username, balance)
}

// GetBalance handles ledger_getBalance.
func (api *ledgerAPI) GetBalance(address string) (float64, error) {
	return api.ledger.GetBalance(address)
}

// SendMoney handles ledger_sendMoney.
func (api *ledgerAPI) SendMoney(from, to string, amount float64) (modules.Receipt, error) {
	return api.ledger.SendMoney(from, to, amount)
}

// NewServer starts serving the given ledger on addr. Pass a port of zero
// to let the kernel choose one; Addr reports the final address.
func NewServer(l *Ledger, addr string) (*Server, error) {
	rpcSrv := rpc.NewServer()
	if err := rpcSrv.RegisterName(modules.LedgerNamespace, &ledgerAPI{ledger: l}); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &Server{
		ledger:   l,
		listener: listener,
		rpc:      rpcSrv,
	}
	go srv.rpc.ServeListener(listener)
	l.log.Println("ledger service listening on", listener.Addr())
	return srv, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops accepting connections, terminates in-flight calls, and shuts
// down the underlying ledger.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.rpc.Stop()
	return errors.Compose(err, s.ledger.Close())
}
