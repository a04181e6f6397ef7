package autostart

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const launchLabel = "io.github.syncheal"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.ExecPath}}</string>
		<string>watch</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
</dict>
</plist>
`

type DarwinAutoStarter struct {
	// Dir overrides ~/Library/LaunchAgents.
	Dir string
}

func (d *DarwinAutoStarter) plistPath() (string, error) {
	dir := d.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "LaunchAgents")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, launchLabel+".plist"), nil
}

func renderPlist(execPath string) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(execPath)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	tmpl := template.Must(template.New("plist").Parse(plistTemplate))
	if err := tmpl.Execute(&buf, map[string]string{
		"Label":    launchLabel,
		"ExecPath": escaped.String(),
	}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (d *DarwinAutoStarter) Install(execPath string) error {
	path, err := d.plistPath()
	if err != nil {
		return err
	}

	plist, err := renderPlist(execPath)
	if err != nil {
		return fmt.Errorf("failed to render launch agent: %w", err)
	}

	if err := os.WriteFile(path, plist, 0644); err != nil {
		return fmt.Errorf("failed to write launch agent: %w", err)
	}

	return run("launchctl", "load", "-w", path)
}

func (d *DarwinAutoStarter) Uninstall() error {
	path, err := d.plistPath()
	if err != nil {
		return err
	}

	_ = run("launchctl", "unload", "-w", path)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove launch agent: %w", err)
	}

	return nil
}

func (d *DarwinAutoStarter) IsInstalled() (bool, error) {
	path, err := d.plistPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
