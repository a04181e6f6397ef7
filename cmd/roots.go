package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"syncheal/internal/model"

	"github.com/spf13/cobra"
)

var rootsStrategy string

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Manage the roots watched by the daemon",
}

var rootsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all watched roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/roots"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result struct {
			Roots   []model.WatchRoot             `json:"roots"`
			Running map[string]model.RootSnapshot `json:"running"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode roots response: %w", err)
		}

		if len(result.Roots) == 0 {
			fmt.Println("no roots configured")
			return nil
		}

		fmt.Printf("%-4s %-8s %-12s %-40s %s\n", "ID", "STATUS", "STRATEGY", "PATH", "RESOLVED/FAILED")
		for _, r := range result.Roots {
			resolved, failed := 0, 0
			if snap, ok := result.Running[fmt.Sprint(r.ID)]; ok {
				resolved = snap.Resolved
				failed = snap.Failed
			}
			fmt.Printf("%-4d %-8s %-12s %-40s %d/%d\n", r.ID, r.Status, r.Strategy, r.Path, resolved, failed)
		}

		return nil
	},
}

var rootsAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Watch a new root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := expandHome(args[0])
		if err != nil {
			return err
		}
		if path, err = filepath.Abs(path); err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}

		body, _ := json.Marshal(map[string]string{
			"path":     path,
			"strategy": strings.ToUpper(rootsStrategy),
		})
		resp, err := http.Post(daemonURL("/roots"), "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&result)

		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("failed to add root: %v", result["error"])
		}

		fmt.Printf("root added: id=%v path=%s\n", result["ID"], path)
		return nil
	},
}

var rootsRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Stop watching a root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, _ := http.NewRequest(http.MethodDelete, daemonURL("/roots/"+args[0]), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("failed to remove root %s: %s", args[0], resp.Status)
		}

		fmt.Printf("root %s removed\n", args[0])
		return nil
	},
}

var rootsPauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a watched root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postRootAction(args[0], "pause", "paused")
	},
}

var rootsResumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postRootAction(args[0], "resume", "resumed")
	},
}

func postRootAction(id, action, done string) error {
	resp, err := http.Post(daemonURL("/roots/"+id+"/"+action), "application/json", nil)
	if err != nil {
		return fmt.Errorf("daemon not running: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var result map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("failed to %s root %s: %s", action, id, result["error"])
	}

	fmt.Printf("root %s %s\n", id, done)
	return nil
}

func init() {
	rootsAddCmd.Flags().StringVar(&rootsStrategy, "strategy", "", "Unattended strategy (NEWER_WINS, LOCAL_WINS, SERVER_WINS, SKIP)")
	rootsCmd.AddCommand(rootsListCmd, rootsAddCmd, rootsRemoveCmd, rootsPauseCmd, rootsResumeCmd)
	rootCmd.AddCommand(rootsCmd)
}
