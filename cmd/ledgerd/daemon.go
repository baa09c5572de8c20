package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/modules/ledger"

	"github.com/spf13/cobra"
	"gitlab.com/NebulousLabs/errors"
)

var (
	// srv is the daemon's RPC server. It is kept in a package variable so
	// that the tests can close it.
	srv *ledger.Server

	// started receives a value once the daemon is serving, so the testing
	// package knows that daemon startup has completed.
	started = make(chan struct{})
)

// startDaemon uses the config parameters to start ledgerd.
func startDaemon() error {
	l, err := ledger.New(filepath.Join(config.DataDir, modules.LedgerDir))
	if err != nil {
		return err
	}
	s, err := ledger.NewServer(l, config.RPCAddr)
	if err != nil {
		return errors.Compose(err, l.Close())
	}
	srv = s
	fmt.Println("Ledger service listening on", s.Addr())

	// The RPC server accepts connections on its own goroutine, so the
	// daemon blocks on the kill signals itself.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, os.Kill)
	go func() {
		started <- struct{}{}
	}()
	<-sigChan
	fmt.Println("\rCaught stop signal, quitting...")
	return srv.Close()
}

// startDaemonCmd is a passthrough function for startDaemon.
func startDaemonCmd(*cobra.Command, []string) {
	err := startDaemon()
	if err != nil {
		fmt.Println(err)
	}
}
