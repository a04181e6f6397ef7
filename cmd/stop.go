package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// stopReply is what the daemon reports right before it shuts its roots down.
type stopReply struct {
	Status   string `json:"status"`
	Roots    int    `json:"roots"`
	Resolved int    `json:"resolved"`
}

func (r stopReply) String() string {
	noun := "roots"
	if r.Roots == 1 {
		noun = "root"
	}
	return fmt.Sprintf("daemon stopping: %d watch %s closed, %d conflicts healed since start", r.Roots, noun, r.Resolved)
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the watch daemon and every root it watches",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(daemonURL("/stop"), "application/json", nil)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var reply stopReply
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return fmt.Errorf("failed to decode stop response: %w", err)
		}

		fmt.Println(reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
