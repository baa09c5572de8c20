package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ScatterLabs/Scatter/api"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/modules/ledger"
	"github.com/ScatterLabs/Scatter/modules/renter"

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

// localIP discovers the outward-facing IP of this machine by opening a UDP
// socket toward a public address. No packets are sent.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// advertisedURL returns the base URL the renter announces to its
// coordinator, deriving one from the local IP when no URL was configured.
func advertisedURL() (string, error) {
	if config.URL != "" {
		return config.URL, nil
	}
	_, port, err := net.SplitHostPort(config.APIaddr)
	if err != nil {
		return "", errors.AddContext(err, "could not derive an advertised url from the api address")
	}
	return "http://" + net.JoinHostPort(localIP(), port), nil
}

// createLedgerAccount makes sure the configured username has a settlement
// account and returns its address. The connection is only held long enough
// for the account dance; payouts arrive without the renter's involvement.
func createLedgerAccount() string {
	if config.Username == "" {
		fmt.Println("WARN: --username is required for settlement; this renter will serve shards unpaid.")
		return ""
	}
	client, err := ledger.Dial(config.LedgerAddr)
	if err != nil {
		fmt.Println("WARN: could not reach the ledger service:", err)
		fmt.Println("This renter will serve shards unpaid for this run.")
		return ""
	}
	defer client.Close()

	address, err := client.CreateAccount(config.Username, renterStartingBalance)
	if errors.Contains(err, modules.ErrAccountExists) {
		address, err = modules.LedgerAddressFor(config.Username), nil
	}
	if err != nil {
		fmt.Println("WARN: could not create a ledger account:", err)
		return ""
	}
	if balance, err := client.Balance(address); err == nil {
		fmt.Printf("Ledger account %v has a balance of %v\n", address, balance)
	}
	return address
}

// startDaemon uses the config parameters to start renterd.
func startDaemon() error {
	url, err := advertisedURL()
	if err != nil {
		return err
	}

	var ledgerAddress string
	if config.LedgerAddr != "" {
		ledgerAddress = createLedgerAccount()
	}

	// Create the renter module, which registers with the coordinator.
	r, err := renter.New(renter.Config{
		CoordinatorURL: config.CoordinatorURL,
		URL:            modules.RenterURL(url),
		Capacity:       config.CapacityMB * (1 << 20),
		LedgerAddress:  ledgerAddress,
	}, filepath.Join(config.DataDir, modules.RenterDir))
	if err != nil {
		return err
	}
	srv, err = api.NewServer(config.APIaddr, nil, nil, r)
	if err != nil {
		return errors.Compose(err, r.Close())
	}

	// Stop the server on kill signals so that the module closes cleanly.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, os.Kill)
	go func() {
		<-sigChan
		fmt.Println("\rCaught stop signal, quitting...")
		srv.Close()
	}()

	fmt.Println("Renter API listening on", srv.Addr())
	fmt.Println("Advertising", url, "to the coordinator at", config.CoordinatorURL)
	go func() {
		started <- struct{}{}
	}()

	// Serve until the server is closed by a signal or by the tests.
	return srv.Serve()
}

// startDaemonCmd is a passthrough function for startDaemon.
func startDaemonCmd(*cobra.Command, []string) {
	err := startDaemon()
	if err != nil {
		fmt.Println(err)
	}
}
