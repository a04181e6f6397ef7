package cmd

import (
	"fmt"
	"path/filepath"

	"syncheal/internal/prompt"
	"syncheal/internal/trash"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var trashRootFlag string

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect and restore files moved to the trash",
}

func trashRelocator() (*trash.Relocator, error) {
	root, err := resolveRoot(prompt.NewTerminal(), trashRootFlag, cfg.DefaultRoot)
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	return trash.New(fsys, root, filepath.Join(root, cfg.TrashDir)), nil
}

var trashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trashed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		relocator, err := trashRelocator()
		if err != nil {
			return err
		}

		entries, err := relocator.List()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("trash `%s` is empty\n", relocator.Root())
			return nil
		}

		fmt.Printf("%-19s %10s  %s\n", "MODIFIED", "SIZE", "PATH")
		for _, e := range entries {
			fmt.Printf("%-19s %10d  %s\n", e.ModTime.Format("2006-01-02 15:04:05"), e.Size, e.Rel)
		}

		return nil
	},
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore [path]",
	Short: "Move a trashed file back to its place in the root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		relocator, err := trashRelocator()
		if err != nil {
			return err
		}

		dst, err := relocator.Restore(filepath.FromSlash(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("restored %s\n", dst)
		return nil
	},
}

func init() {
	trashCmd.PersistentFlags().StringVarP(&trashRootFlag, "root", "r", "", "Sync root whose trash to use")
	trashCmd.AddCommand(trashListCmd, trashRestoreCmd)
	rootCmd.AddCommand(trashCmd)
}
