package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "kiosk",
	Short:        "Voice ordering kiosk for the gukbap counter",
	SilenceUsage: true,
	Long: `kiosk runs the conversation core of a restaurant ordering kiosk.

It tracks the order ledger, drives the voice conversation against the
interpreter backend, and hands completed orders to the kitchen.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, checkCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
