package main

import (
	"fmt"
	"os"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/persist"

	"github.com/spf13/cobra"
)

// Config holds the configuration variables of the ledger daemon. It is
// filled out by cobra before startDaemon runs.
type Config struct {
	RPCAddr string
	DataDir string
}

var config Config

// versionCmd prints version information about the ledger daemon.
func versionCmd(*cobra.Command, []string) {
	fmt.Println("Scatter Ledger Daemon v" + build.Version)
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Scatter Ledger Daemon v" + build.Version,
		Long:  "Scatter Ledger Daemon v" + build.Version,
		Run:   startDaemonCmd,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information about the Scatter Ledger Daemon",
		Run:   versionCmd,
	})

	root.Flags().StringVarP(&config.RPCAddr, "rpc-addr", "r", ":7575", "which host:port the ledger service listens on")
	root.Flags().StringVarP(&config.DataDir, "scatter-directory", "d", persist.HomeFolder, "location of the scatter data directory")

	root.Execute()
}
