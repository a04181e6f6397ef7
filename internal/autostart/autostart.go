// Package autostart registers the watch daemon to start at login.
package autostart

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const serviceName = "syncheal"

type AutoStarter interface {
	Install(execPath string) error
	Uninstall() error
	IsInstalled() (bool, error)
}

func New() AutoStarter {
	switch runtime.GOOS {
	case "windows":
		return &WindowsAutoStarter{}
	case "linux":
		return &LinuxAutoStarter{}
	case "darwin":
		return &DarwinAutoStarter{}
	default:
		return &UnsupportedAutoStarter{}
	}
}

type UnsupportedAutoStarter struct{}

func (u *UnsupportedAutoStarter) Install(_ string) error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func (u *UnsupportedAutoStarter) Uninstall() error {
	return nil
}

func (u *UnsupportedAutoStarter) IsInstalled() (bool, error) {
	return false, nil
}

func run(args ...string) error {
	out, err := exec.Command(args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to run %s: %w\n%s", strings.Join(args, " "), err, out)
	}

	return nil
}
