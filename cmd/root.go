package cmd

import (
	"fmt"
	"os"

	"github.com/kanal-io/kanal/cmd/call"
	"github.com/kanal-io/kanal/cmd/perf"
	"github.com/kanal-io/kanal/cmd/serve"
	"github.com/kanal-io/kanal/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kanal",
		Short: "multi-transport framed messaging",
		Long: fmt.Sprintf(`kanal (v%s)

A multi-transport client/server messaging substrate written in Go,
with pooled connections, automatic reconnects and heartbeat probing.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kanal",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kanal v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.CallCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
