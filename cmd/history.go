package cmd

import (
	"fmt"

	"syncheal/internal/model"
	"syncheal/internal/repository"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past resolutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := repository.NewHistoryRepository()

		var (
			histories []model.History
			err       error
		)
		if historyFailed {
			histories, err = repo.GetFailed()
		} else {
			histories, err = repo.GetRecent(historyN)
		}
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := color.New(color.FgGreen).Sprint("✓")
			outcome := string(h.Outcome)
			if h.ErrMsg != "" {
				status = color.New(color.FgRed).Sprint("✗")
				outcome = h.ErrMsg
			}

			fmt.Printf("%s [%s] %-11s %s -> %s\n",
				status,
				h.ResolvedAt.Format("2006-01-02 15:04:05"),
				outcome,
				h.ConflictPath,
				h.OriginalPath,
			)
			if h.TrashPath != "" {
				fmt.Printf("    trash: %s\n", h.TrashPath)
			}
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed resolutions")
	rootCmd.AddCommand(historyCmd)
}
