package policy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"syncheal/internal/model"
	"syncheal/internal/prompt"
	"syncheal/internal/trash"

	"github.com/spf13/afero"
)

type fakePrompter struct {
	choice      model.Choice
	interactive bool
	asked       []prompt.Question
}

func (f *fakePrompter) Interactive() bool { return f.interactive }

func (f *fakePrompter) Choose(q prompt.Question) (model.Choice, error) {
	f.asked = append(f.asked, q)
	return f.choice, nil
}

func (f *fakePrompter) Input(_, def string) (string, error) { return def, nil }

func (f *fakePrompter) Select(_ string, _ []string, def string) (string, error) { return def, nil }

type fakeMerger struct {
	tool  string
	calls [][2]string
}

func (m *fakeMerger) Available() bool { return m.tool != "" }
func (m *fakeMerger) Tool() string    { return m.tool }
func (m *fakeMerger) Merge(_ context.Context, original, conflict string) error {
	m.calls = append(m.calls, [2]string{original, conflict})
	return nil
}

type fakeDiff struct{ rendered int }

func (d *fakeDiff) Render(w io.Writer, _, _, _, _ string) error {
	d.rendered++
	_, err := io.WriteString(w, "diff\n")
	return err
}

type fakeMemory struct{ kept bool }

func (m fakeMemory) KeptBoth(string, time.Time, time.Time) (bool, error) { return m.kept, nil }

type fixture struct {
	root      string
	trashRoot string
	conflict  model.ConflictFile
	original  model.OriginalFile
}

func setup(t *testing.T, conflictName, originalName string, withOriginal bool) fixture {
	t.Helper()

	root := t.TempDir()
	conflictPath := filepath.Join(root, conflictName)
	originalPath := filepath.Join(root, originalName)

	if err := os.WriteFile(conflictPath, []byte("local content"), 0644); err != nil {
		t.Fatal(err)
	}

	conflictMod := time.Date(2021, 1, 1, 10, 0, 0, 0, time.Local)
	if err := os.Chtimes(conflictPath, conflictMod, conflictMod); err != nil {
		t.Fatal(err)
	}

	if withOriginal {
		if err := os.WriteFile(originalPath, []byte("server content"), 0644); err != nil {
			t.Fatal(err)
		}
		originalMod := time.Date(2021, 1, 2, 10, 0, 0, 0, time.Local)
		if err := os.Chtimes(originalPath, originalMod, originalMod); err != nil {
			t.Fatal(err)
		}
	}

	return fixture{
		root:      root,
		trashRoot: filepath.Join(root, ".Trash-1000"),
		conflict: model.ConflictFile{
			Path:    conflictPath,
			Rel:     conflictName,
			ModTime: conflictMod,
			Ext:     filepath.Ext(conflictName),
			Source:  model.Nextcloud,
		},
		original: model.OriginalFile{Path: originalPath, Rel: originalName},
	}
}

func (f fixture) policy(p prompt.Prompter, opts Options, options ...Option) *Policy {
	return f.policyFs(afero.NewOsFs(), p, opts, options...)
}

func (f fixture) policyFs(fs afero.Fs, p prompt.Prompter, opts Options, options ...Option) *Policy {
	return New(fs, trash.New(fs, f.root, f.trashRoot), p, opts, options...)
}

// stuckFs refuses to move one file away.
type stuckFs struct {
	afero.Fs
	path string
}

func (s stuckFs) Rename(oldname, newname string) error {
	if oldname == s.path {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return s.Fs.Rename(oldname, newname)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestResolve_AutoHeal(t *testing.T) {
	f := setup(t, "report.sync-conflict-20200101-120000.txt", "report.txt", false)
	p := &fakePrompter{choice: model.ChoiceQuit, interactive: true}

	res, err := f.policy(p, Options{}).Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Outcome != model.OutcomeAutoHealed {
		t.Errorf("Outcome = %s, want %s", res.Outcome, model.OutcomeAutoHealed)
	}
	if exists(f.conflict.Path) {
		t.Error("conflict path should be gone")
	}
	if got := readFile(t, f.original.Path); got != "local content" {
		t.Errorf("original content = %q", got)
	}
	if len(p.asked) != 0 {
		t.Error("auto-heal must not prompt")
	}
	if exists(f.trashRoot) {
		t.Error("auto-heal must not touch the trash")
	}
}

func TestResolve_KeepLocal(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceKeepLocal, interactive: true}

	res, err := f.policy(p, Options{}).Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Outcome != model.OutcomeKeptLocal {
		t.Errorf("Outcome = %s", res.Outcome)
	}
	if want := filepath.Join(f.trashRoot, "notes.md"); res.TrashPath != want {
		t.Errorf("TrashPath = %q, want %q", res.TrashPath, want)
	}
	if got := readFile(t, res.TrashPath); got != "server content" {
		t.Errorf("trashed content = %q, want server content", got)
	}
	if got := readFile(t, f.original.Path); got != "local content" {
		t.Errorf("original content = %q, want local content", got)
	}
	if exists(f.conflict.Path) {
		t.Error("conflict path should be gone")
	}
}

func TestResolve_KeepLocalRestoresOriginal(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceKeepLocal, interactive: true}
	fs := stuckFs{Fs: afero.NewOsFs(), path: f.conflict.Path}

	res, err := f.policyFs(fs, p, Options{}).Resolve(context.Background(), f.conflict, f.original)
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("Resolve error = %v, want permission error", err)
	}

	if res.TrashPath != "" {
		t.Errorf("TrashPath = %q, want empty", res.TrashPath)
	}
	if got := readFile(t, f.original.Path); got != "server content" {
		t.Errorf("original content = %q, want server content", got)
	}
	if got := readFile(t, f.conflict.Path); got != "local content" {
		t.Errorf("conflict content = %q, want local content", got)
	}
	if exists(filepath.Join(f.trashRoot, "notes.md")) {
		t.Error("original should no longer be in the trash")
	}
}

func TestResolve_KeepServer(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceKeepServer, interactive: true}

	res, err := f.policy(p, Options{}).Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Outcome != model.OutcomeKeptServer {
		t.Errorf("Outcome = %s", res.Outcome)
	}
	want := filepath.Join(f.trashRoot, "notes (conflicted copy 2021-01-01).md")
	if res.TrashPath != want {
		t.Errorf("TrashPath = %q, want %q", res.TrashPath, want)
	}
	if got := readFile(t, want); got != "local content" {
		t.Errorf("trashed content = %q", got)
	}
	if got := readFile(t, f.original.Path); got != "server content" {
		t.Errorf("original should be untouched, got %q", got)
	}
}

func TestResolve_KeepServer_TrashAsOriginal(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceKeepServer, interactive: true}

	res, err := f.policy(p, Options{TrashAsOriginal: true}).Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if want := filepath.Join(f.trashRoot, "notes.md"); res.TrashPath != want {
		t.Errorf("TrashPath = %q, want %q", res.TrashPath, want)
	}
}

func TestResolve_KeepBothAndQuit(t *testing.T) {
	tests := []struct {
		choice model.Choice
		want   model.Outcome
	}{
		{model.ChoiceKeepBoth, model.OutcomeKeptBoth},
		{model.ChoiceQuit, model.OutcomeAborted},
	}

	for _, tt := range tests {
		t.Run(tt.choice.String(), func(t *testing.T) {
			f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
			p := &fakePrompter{choice: tt.choice, interactive: true}

			res, err := f.policy(p, Options{}).Resolve(context.Background(), f.conflict, f.original)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
			if !exists(f.conflict.Path) || !exists(f.original.Path) {
				t.Error("both files should be untouched")
			}
			if exists(f.trashRoot) {
				t.Error("trash should not be created")
			}
		})
	}
}

func TestResolve_TrashCollision(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	if err := os.MkdirAll(f.trashRoot, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.trashRoot, "notes.md"), []byte("earlier loser"), 0644); err != nil {
		t.Fatal(err)
	}

	p := &fakePrompter{choice: model.ChoiceKeepLocal, interactive: true}
	_, err := f.policy(p, Options{}).Resolve(context.Background(), f.conflict, f.original)
	if !errors.Is(err, model.ErrDestinationExists) {
		t.Fatalf("Resolve error = %v, want ErrDestinationExists", err)
	}

	if got := readFile(t, filepath.Join(f.trashRoot, "notes.md")); got != "earlier loser" {
		t.Errorf("trash overwritten: %q", got)
	}
	if got := readFile(t, f.original.Path); got != "server content" {
		t.Errorf("original changed: %q", got)
	}
	if !exists(f.conflict.Path) {
		t.Error("conflict should stay in place")
	}
}

func TestResolve_QuestionShape(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceKeepBoth, interactive: true}
	merger := &fakeMerger{tool: "meld"}
	d := &fakeDiff{}
	var out bytes.Buffer

	pol := f.policy(p, Options{TextExtensions: []string{".md"}}, WithMerger(merger), WithDiff(d, &out))
	if _, err := pol.Resolve(context.Background(), f.conflict, f.original); err != nil {
		t.Fatal(err)
	}

	if d.rendered != 1 || out.String() != "diff\n" {
		t.Errorf("diff rendered %d times, out = %q", d.rendered, out.String())
	}

	q := p.asked[0]
	var choices []model.Choice
	for _, o := range q.Options {
		choices = append(choices, o.Choice)
	}
	want := []model.Choice{
		model.ChoiceKeepLocal, model.ChoiceKeepServer, model.ChoiceMerge,
		model.ChoiceKeepBoth, model.ChoiceQuit,
	}
	if len(choices) != len(want) {
		t.Fatalf("choices = %v, want %v", choices, want)
	}
	for i := range want {
		if choices[i] != want[i] {
			t.Errorf("choice %d = %v, want %v", i, choices[i], want[i])
		}
	}
	if q.Default != model.ChoiceKeepServer {
		t.Errorf("Default = %v", q.Default)
	}
	if q.Options[0].Label != "[2021-01-01T10:00:00] notes (conflicted copy 2021-01-01).md" {
		t.Errorf("local label = %q", q.Options[0].Label)
	}
}

func TestResolve_NoMergeForBinary(t *testing.T) {
	f := setup(t, "photo (conflicted copy 2021-01-01).jpg", "photo.jpg", true)
	p := &fakePrompter{choice: model.ChoiceKeepBoth, interactive: true}
	d := &fakeDiff{}

	pol := f.policy(p, Options{TextExtensions: []string{".md"}}, WithMerger(&fakeMerger{tool: "meld"}), WithDiff(d, io.Discard))
	if _, err := pol.Resolve(context.Background(), f.conflict, f.original); err != nil {
		t.Fatal(err)
	}

	if d.rendered != 0 {
		t.Error("diff should only render for text extensions")
	}
	for _, o := range p.asked[0].Options {
		if o.Choice == model.ChoiceMerge {
			t.Error("merge option offered for a non-text file")
		}
	}
}

func TestResolve_Merge(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceMerge, interactive: true}
	merger := &fakeMerger{tool: "meld"}

	pol := f.policy(p, Options{TextExtensions: []string{".md"}}, WithMerger(merger))
	res, err := pol.Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != model.OutcomeMerged {
		t.Errorf("Outcome = %s", res.Outcome)
	}
	if len(merger.calls) != 1 || merger.calls[0] != [2]string{f.original.Path, f.conflict.Path} {
		t.Errorf("merge calls = %v", merger.calls)
	}
	if !exists(f.conflict.Path) || !exists(f.original.Path) {
		t.Error("merge must not relocate anything")
	}
}

func TestResolve_Strategies(t *testing.T) {
	tests := []struct {
		strategy model.ConflictStrategy
		want     model.Outcome
	}{
		{model.StrategyNewerWins, model.OutcomeKeptServer},
		{model.StrategyLocalWins, model.OutcomeKeptLocal},
		{model.StrategyServerWins, model.OutcomeKeptServer},
		{model.StrategySkip, model.OutcomeKeptBoth},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
			p := &fakePrompter{choice: model.ChoiceQuit, interactive: true}

			res, err := f.policy(p, Options{Strategy: tt.strategy}).Resolve(context.Background(), f.conflict, f.original)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
			if len(p.asked) != 0 {
				t.Error("non-interactive strategies must not prompt")
			}
		})
	}
}

func TestResolve_NewerWins_LocalNewer(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	newer := time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local)
	if err := os.Chtimes(f.conflict.Path, newer, newer); err != nil {
		t.Fatal(err)
	}
	f.conflict.ModTime = newer

	res, err := f.policy(nil, Options{Strategy: model.StrategyNewerWins}).Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != model.OutcomeKeptLocal {
		t.Errorf("Outcome = %s, want %s", res.Outcome, model.OutcomeKeptLocal)
	}
}

func TestResolve_RememberedKeepBoth(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)
	p := &fakePrompter{choice: model.ChoiceKeepLocal, interactive: true}

	pol := f.policy(p, Options{}, WithKeepBothMemory(fakeMemory{kept: true}))
	res, err := pol.Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != model.OutcomeKeptBoth {
		t.Errorf("Outcome = %s", res.Outcome)
	}
	if len(p.asked) != 0 {
		t.Error("remembered decision must not prompt")
	}
}

func TestResolve_NilPrompterUsesDefault(t *testing.T) {
	f := setup(t, "notes (conflicted copy 2021-01-01).md", "notes.md", true)

	res, err := f.policy(nil, Options{}).Resolve(context.Background(), f.conflict, f.original)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != model.OutcomeKeptServer {
		t.Errorf("Outcome = %s, want default %s", res.Outcome, model.OutcomeKeptServer)
	}
}
