package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ScatterLabs/Scatter/api"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/modules/coordinator"
	"github.com/ScatterLabs/Scatter/modules/coordinator/placement"
	"github.com/ScatterLabs/Scatter/modules/ledger"
	"github.com/ScatterLabs/Scatter/modules/membership"
	"github.com/ScatterLabs/Scatter/profile"

	"github.com/spf13/cobra"
	"gitlab.com/NebulousLabs/errors"
)

var (
	// srv is the daemon's API server. It is kept in a package variable so
	// that the signal handler and the tests can close it.
	srv *api.Server

	// started receives a value once the daemon is serving, so the testing
	// package knows that daemon startup has completed.
	started = make(chan struct{})
)

// startDaemon uses the config parameters to start scatterd.
func startDaemon() error {
	if config.ShardSize == 0 {
		return errors.New("shard size must be positive")
	}
	placement.TargetShardSize = config.ShardSize

	if config.Profile {
		err := profile.StartContinuousProfile(filepath.Join(config.DataDir, "profile"))
		if err != nil {
			return err
		}
	}

	// Reach the settlement ledger before the modules load, so the
	// coordinator can report its connection state. Running without a ledger
	// is supported; settlement is simply skipped.
	var ledgerClient modules.LedgerClient
	if config.LedgerAddr != "" {
		client, err := ledger.Dial(config.LedgerAddr)
		if err != nil {
			fmt.Println("WARN: could not reach the ledger service:", err)
			fmt.Println("Settlement is disabled for this run.")
		} else {
			ledgerClient = client
			defer client.Close()
		}
	}

	// Create all of the modules.
	m, err := membership.New(filepath.Join(config.DataDir, modules.MembershipDir))
	if err != nil {
		return err
	}
	c, err := coordinator.New(m, ledgerClient, filepath.Join(config.DataDir, modules.CoordinatorDir))
	if err != nil {
		return err
	}
	srv, err = api.NewServer(config.APIaddr, m, c, nil)
	if err != nil {
		return err
	}

	// Stop the server on kill signals so that the modules close cleanly.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, os.Kill)
	go func() {
		<-sigChan
		fmt.Println("\rCaught stop signal, quitting...")
		srv.Close()
	}()

	fmt.Println("Coordinator API listening on", srv.Addr())
	go func() {
		started <- struct{}{}
	}()

	// Serve until the server is closed by a signal or by the tests.
	return srv.Serve()
}

// resolveLedgerAddr decides which ledger endpoint the daemon connects to:
// the --ledger-addr flag, then the SCATTER_LEDGER_ADDR environment
// variable, then an interactive prompt. An empty answer runs the
// coordinator without settlement.
func resolveLedgerAddr() string {
	if config.LedgerAddr != "" {
		return config.LedgerAddr
	}
	if addr := os.Getenv("SCATTER_LEDGER_ADDR"); addr != "" {
		return addr
	}
	fmt.Print("Ledger service address (leave empty to run without settlement): ")
	addr, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(addr)
}

// startDaemonCmd is a passthrough function for startDaemon.
func startDaemonCmd(*cobra.Command, []string) {
	config.LedgerAddr = resolveLedgerAddr()
	err := startDaemon()
	if err != nil {
		fmt.Println(err)
	}
}
