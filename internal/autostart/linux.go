package autostart

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const unitTemplate = `[Unit]
Description=syncheal conflict watcher
After=default.target

[Service]
ExecStart={{.ExecPath}} watch
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

type LinuxAutoStarter struct {
	// Dir overrides ~/.config/systemd/user.
	Dir string
}

func (l *LinuxAutoStarter) unitPath() (string, error) {
	dir := l.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, serviceName+".service"), nil
}

func renderUnit(execPath string) ([]byte, error) {
	var buf bytes.Buffer
	tmpl := template.Must(template.New("unit").Parse(unitTemplate))
	if err := tmpl.Execute(&buf, map[string]string{"ExecPath": execPath}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (l *LinuxAutoStarter) Install(execPath string) error {
	path, err := l.unitPath()
	if err != nil {
		return err
	}

	unit, err := renderUnit(execPath)
	if err != nil {
		return fmt.Errorf("failed to render service file: %w", err)
	}

	if err := os.WriteFile(path, unit, 0644); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", serviceName + ".service"},
		{"systemctl", "--user", "start", serviceName + ".service"},
	}

	for _, args := range cmds {
		if err := run(args...); err != nil {
			return err
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	_ = run("systemctl", "--user", "stop", serviceName+".service")
	_ = run("systemctl", "--user", "disable", serviceName+".service")

	path, err := l.unitPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove service file: %w", err)
	}

	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.unitPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
