package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/akyaiy/rdata-node/hooks"
	"github.com/akyaiy/rdata-node/internal/core/corestate"
	"github.com/akyaiy/rdata-node/internal/engine/logs"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "node",
	Short: "rdata node",
	Long:  "JSON-RPC 2.0 node serving methods and bulk requests over WebSocket",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	log.SetOutput(os.Stdout)
	log.SetPrefix(logs.SetBrightBlack(fmt.Sprintf("(%s) ", corestate.StageNotReady)))
	log.SetFlags(log.Ldate | log.Ltime)
	if err := hooks.Compositor.LoadCMDLine(rootCmd); err != nil {
		log.Fatalf("Unexpected error: %s", err.Error())
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
