package autostart

import (
	"fmt"
	"os/exec"
)

const taskName = "SynchealWatch"

type WindowsAutoStarter struct{}

func taskArgs(execPath string) []string {
	return []string{"schtasks", "/Create",
		"/TN", taskName,
		"/TR", fmt.Sprintf(`"%s" watch`, execPath),
		"/SC", "ONLOGON",
		"/F"}
}

func (w *WindowsAutoStarter) Install(execPath string) error {
	if err := run(taskArgs(execPath)...); err != nil {
		return fmt.Errorf("failed to register task: %w", err)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	if err := run("schtasks", "/Delete", "/TN", taskName, "/F"); err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	if err := exec.Command("schtasks", "/Query", "/TN", taskName).Run(); err != nil {
		return false, nil
	}

	return true, nil
}
