package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dStream/cmd/bench"
	"github.com/ValentinKolb/dStream/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dstream",
		Short: "demand regulated result streaming",
		Long: fmt.Sprintf(`dStream (v%s)

A library and toolkit for demand regulated result delivery written in Go,
pairing reactive-streams style sessions with an asynchronous, bounded
index update sink.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dStream",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dStream v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "codec"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("record codec to use (json, binary)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level to use (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		util.InitConfig()
		_ = util.BindCommandFlags(RootCmd)
		util.InitLoggers(viper.GetString("log-level"))
	})

	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
