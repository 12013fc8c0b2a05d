package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gukbap/kiosk/internal/config"
	"gukbap/kiosk/internal/health"
	"gukbap/kiosk/internal/logging"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the interpreter backend, kitchen broker and local kiosk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logging.Setup(cfg.Server.LogLevel)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		st := health.CheckAll(ctx, cfg)

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(st); err != nil {
				return err
			}
		} else {
			fmt.Print(st.String())
		}
		if !st.OK {
			return fmt.Errorf("health check failed")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
}
