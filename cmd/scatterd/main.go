package main

import (
	"fmt"
	"os"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/persist"

	"github.com/spf13/cobra"
)

// Config holds the configuration variables of the coordinator daemon. It is
// filled out by cobra before startDaemon runs.
type Config struct {
	APIaddr    string
	LedgerAddr string
	ShardSize  uint64
	DataDir    string
	Profile    bool
}

var config Config

// versionCmd prints version information about the coordinator daemon.
func versionCmd(*cobra.Command, []string) {
	fmt.Println("Scatter Coordinator Daemon v" + build.Version)
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Scatter Coordinator Daemon v" + build.Version,
		Long:  "Scatter Coordinator Daemon v" + build.Version,
		Run:   startDaemonCmd,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information about the Scatter Coordinator Daemon",
		Run:   versionCmd,
	})

	root.Flags().StringVarP(&config.APIaddr, "api-addr", "a", ":8000", "which host:port the coordinator API listens on")
	root.Flags().StringVarP(&config.LedgerAddr, "ledger-addr", "l", "", "host:port of the settlement ledger service; leave empty to run without settlement")
	root.Flags().Uint64VarP(&config.ShardSize, "shard-size", "s", 1<<20, "target shard size in bytes when splitting uploads")
	root.Flags().StringVarP(&config.DataDir, "scatter-directory", "d", persist.HomeFolder, "location of the scatter data directory")
	root.Flags().BoolVarP(&config.Profile, "profile", "p", false, "log goroutine counts and memory statistics while the daemon runs")

	root.Execute()
}
