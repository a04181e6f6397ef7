package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"syncheal/internal/model"
	"syncheal/internal/repository"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result struct {
			Roots   []model.RootSnapshot `json:"roots"`
			History repository.Stats     `json:"history"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		fmt.Printf("resolutions recorded: %d (%d failed)\n\n", result.History.Total, result.History.Failed)

		if len(result.Roots) == 0 {
			fmt.Println("no watched roots")
			return nil
		}

		fmt.Printf("%-4s %-8s %-12s %-40s %-6s %-9s %-7s %s\n",
			"ID", "STATUS", "STRATEGY", "PATH", "PASSES", "RESOLVED", "FAILED", "LAST PASS")

		for _, snap := range result.Roots {
			lastPass := "-"
			if snap.LastPass != nil {
				lastPass = snap.LastPass.Format("2006-01-02 15:04:05")
			}

			uptime := time.Since(snap.StartedAt).Round(time.Second)
			fmt.Printf("%-4d %-8s %-12s %-40s %-6d %-9d %-7d %s\n",
				snap.RootID, snap.Status, snap.Strategy, snap.Path, snap.Passes, snap.Resolved, snap.Failed, lastPass)
			fmt.Printf("     uptime: %s\n", uptime)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
