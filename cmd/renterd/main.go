package main

import (
	"fmt"
	"os"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/persist"

	"github.com/spf13/cobra"
)

const (
	// renterStartingBalance is the balance new settlement accounts are
	// seeded with on the development ledger.
	renterStartingBalance = 1000
)

// Config holds the configuration variables of the renter daemon. It is
// filled out by cobra before startDaemon runs.
type Config struct {
	APIaddr        string
	URL            string
	CoordinatorURL string
	LedgerAddr     string
	Username       string
	CapacityMB     uint64
	DataDir        string
}

var config Config

// versionCmd prints version information about the renter daemon.
func versionCmd(*cobra.Command, []string) {
	fmt.Println("Scatter Renter Daemon v" + build.Version)
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Scatter Renter Daemon v" + build.Version,
		Long:  "Scatter Renter Daemon v" + build.Version,
		Run:   startDaemonCmd,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information about the Scatter Renter Daemon",
		Run:   versionCmd,
	})

	root.Flags().StringVarP(&config.APIaddr, "api-addr", "a", ":8088", "which host:port the renter API listens on")
	root.Flags().StringVarP(&config.URL, "url", "u", "", "base URL the coordinator should reach this renter at; derived from the local IP and api port when empty")
	root.Flags().StringVarP(&config.CoordinatorURL, "coordinator", "c", "http://localhost:8000", "base URL of the coordinator")
	root.Flags().StringVarP(&config.LedgerAddr, "ledger-addr", "l", "", "host:port of the settlement ledger service; leave empty to serve unpaid")
	root.Flags().StringVarP(&config.Username, "username", "n", "", "username the renter's settlement account is created under")
	root.Flags().Uint64VarP(&config.CapacityMB, "capacity", "s", 1024, "storage capacity to offer in MB")
	root.Flags().StringVarP(&config.DataDir, "scatter-directory", "d", persist.HomeFolder, "location of the scatter data directory")

	root.Execute()
}
