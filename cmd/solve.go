package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"syncheal/internal/config"
	"syncheal/internal/diff"
	"syncheal/internal/logger"
	"syncheal/internal/mergetool"
	"syncheal/internal/model"
	"syncheal/internal/policy"
	"syncheal/internal/prompt"
	"syncheal/internal/registry"
	"syncheal/internal/repository"
	"syncheal/internal/resolver"
	"syncheal/internal/trash"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errAborted = errors.New("run aborted by operator")

var (
	solveRoot     string
	solveSources  []string
	solveAll      bool
	solvePick     bool
	solveAbortOK  bool
	solveStrategy string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Resolve conflict files under a sync root (default command)",
	Args:  cobra.NoArgs,
	RunE:  runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	terminal := prompt.NewTerminal()

	root, err := resolveRoot(terminal, solveRoot, cfg.DefaultRoot)
	if err != nil {
		return err
	}

	sources, err := selectSources(terminal, cfg.Sources, solveSources, solveAll, solvePick)
	if err != nil {
		return err
	}

	strategy := cfg.Strategy
	if solveStrategy != "" {
		strategy = model.ConflictStrategy(strings.ToUpper(solveStrategy))
		if !strategy.Valid() {
			return fmt.Errorf("invalid strategy: %s", solveStrategy)
		}
	}

	ctx := cmd.Context()
	fsys := afero.NewOsFs()
	trashRoot := filepath.Join(root, cfg.TrashDir)
	histRepo := repository.NewHistoryRepository()

	options := []policy.Option{
		policy.WithDiff(diff.NewRenderer(fsys), os.Stdout),
		policy.WithMerger(mergetool.New(ctx, mergetool.ExecRunner{}, cfg.MergeTool)),
	}
	if cfg.KeepBoth == config.KeepBothRemember {
		options = append(options, policy.WithKeepBothMemory(repository.NewKeepBothMemory(histRepo, root)))
	}

	pol := policy.New(fsys, trash.New(fsys, root, trashRoot), terminal, policy.Options{
		Strategy:        strategy,
		TextExtensions:  cfg.TextExtensions,
		TrashAsOriginal: cfg.TrashNaming == config.TrashNamingOriginal,
	}, options...)

	res := resolver.New(fsys, root, trashRoot,
		registry.New(fsys, root, trashRoot, cfg.IgnoreList),
		pol,
		resolver.WithRecorder(histRepo),
		resolver.WithProgress(os.Stdout))

	result := res.Run(ctx, sources)
	fmt.Println(summary(result))

	if result.Status == model.RunAbortedByOperator && !solveAbortOK && !cfg.AbortOK {
		return errAborted
	}

	return nil
}

// resolveRoot asks for the root when none was given, expands ~ and checks
// that it is an existing directory.
func resolveRoot(p prompt.Prompter, flagRoot, def string) (string, error) {
	root := flagRoot
	if root == "" {
		var err error
		root, err = p.Input("Sync root to clean up", def)
		if err != nil {
			return "", err
		}
	}

	root, err := expandHome(root)
	if err != nil {
		return "", err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", model.ErrRootNotFound, root)
	}

	return root, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return filepath.Join(home, path[1:]), nil
}

// selectSources returns the named sources in the order given, a single
// operator-picked source with pick, or every configured source with all or
// when nothing narrows the selection.
func selectSources(p prompt.Prompter, configured []model.ConflictSource, names []string, all, pick bool) ([]model.ConflictSource, error) {
	if all {
		return configured, nil
	}

	if len(names) > 0 {
		selected := make([]model.ConflictSource, 0, len(names))
		for _, name := range names {
			source, ok := model.FindSource(configured, name)
			if !ok {
				return nil, fmt.Errorf("unknown conflict source: %s", name)
			}
			selected = append(selected, source)
		}
		return selected, nil
	}

	if !pick {
		return configured, nil
	}

	labels := make([]string, len(configured))
	for i, s := range configured {
		labels[i] = s.Name
	}

	name, err := p.Select("Which conflicts should be solved?", labels, configured[0].Name)
	if err != nil {
		return nil, err
	}

	source, _ := model.FindSource(configured, name)
	return []model.ConflictSource{source}, nil
}

func summary(result model.RunResult) string {
	parts := []string{}
	for _, c := range []struct {
		outcome model.Outcome
		label   string
	}{
		{model.OutcomeAutoHealed, "auto-healed"},
		{model.OutcomeKeptLocal, "kept local"},
		{model.OutcomeKeptServer, "kept server"},
		{model.OutcomeMerged, "merged"},
		{model.OutcomeKeptBoth, "kept both"},
	} {
		if n := result.Count(c.outcome); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, c.label))
		}
	}
	if result.Failed > 0 {
		parts = append(parts, color.New(color.FgRed).Sprintf("%d failed", result.Failed))
	}
	if len(parts) == 0 {
		parts = append(parts, "no conflicts found")
	}

	line := "done: " + strings.Join(parts, ", ")
	if result.Status == model.RunAbortedByOperator {
		line = color.New(color.FgYellow).Sprint("aborted: ") + strings.Join(parts, ", ")
	}

	return line
}

func init() {
	solveCmd.Flags().StringVarP(&solveRoot, "root", "r", "", "Sync root to clean up (asked for when omitted)")
	solveCmd.Flags().StringSliceVarP(&solveSources, "source", "s", nil, "Conflict source to solve, repeatable (default all)")
	solveCmd.Flags().BoolVar(&solveAll, "all", false, "Solve every configured source in order (the default without --source or --pick)")
	solveCmd.Flags().BoolVar(&solvePick, "pick", false, "Pick a single source interactively")
	solveCmd.Flags().BoolVar(&solveAbortOK, "abort-ok", false, "Exit 0 when the run is aborted by the operator")
	solveCmd.Flags().StringVar(&solveStrategy, "strategy", "", "Override the configured strategy (ASK, NEWER_WINS, LOCAL_WINS, SERVER_WINS, SKIP)")
	solveCmd.MarkFlagsMutuallyExclusive("source", "all", "pick")
	rootCmd.AddCommand(solveCmd)
}
