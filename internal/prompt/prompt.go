// Package prompt is the operator-facing decision surface. Every question has a
// default, which is returned without asking when no terminal is attached.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"syncheal/internal/model"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type Tone int

const (
	ToneNone Tone = iota
	ToneLocal
	ToneServer
)

type Option struct {
	Choice model.Choice
	Label  string
	Tone   Tone
}

type Question struct {
	Message string
	Options []Option
	Default model.Choice
}

type Prompter interface {
	// Interactive reports whether an operator can answer questions.
	Interactive() bool
	Choose(q Question) (model.Choice, error)
	Input(message, def string) (string, error)
	Select(message string, options []string, def string) (string, error)
}

type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminal prompts on stdin/stdout when both are terminals.
func NewTerminal() *Terminal {
	return New(os.Stdin, os.Stdout, isTerminal(os.Stdin) && isTerminal(os.Stdout))
}

func New(in io.Reader, out io.Writer, interactive bool) *Terminal {
	return &Terminal{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

func (t *Terminal) Interactive() bool {
	return t.interactive
}

// Choose shows a numbered menu. An empty answer picks the default; end of
// input picks quit.
func (t *Terminal) Choose(q Question) (model.Choice, error) {
	if !t.interactive {
		return q.Default, nil
	}

	labels := make([]string, len(q.Options))
	def := 0
	for i, opt := range q.Options {
		labels[i] = paint(opt.Tone, opt.Label)
		if opt.Choice == q.Default {
			def = i
		}
	}

	idx, err := t.menu(q.Message, labels, def)
	if errors.Is(err, io.EOF) {
		return model.ChoiceQuit, nil
	}
	if err != nil {
		return q.Default, err
	}

	return q.Options[idx].Choice, nil
}

func (t *Terminal) Input(message, def string) (string, error) {
	if !t.interactive {
		return def, nil
	}

	_, _ = fmt.Fprintf(t.out, "%s %s ", color.CyanString("?"), message)
	if def != "" {
		_, _ = fmt.Fprintf(t.out, "(%s) ", def)
	}

	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return def, fmt.Errorf("failed to read answer: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}

	return line, nil
}

func (t *Terminal) Select(message string, options []string, def string) (string, error) {
	if !t.interactive || len(options) == 0 {
		return def, nil
	}

	idx := 0
	for i, opt := range options {
		if opt == def {
			idx = i
		}
	}

	idx, err := t.menu(message, options, idx)
	if errors.Is(err, io.EOF) {
		return def, nil
	}
	if err != nil {
		return def, err
	}

	return options[idx], nil
}

func (t *Terminal) menu(message string, labels []string, def int) (int, error) {
	for {
		_, _ = fmt.Fprintf(t.out, "%s %s\n", color.CyanString("?"), message)
		for i, label := range labels {
			marker := " "
			if i == def {
				marker = ">"
			}
			_, _ = fmt.Fprintf(t.out, " %s %d) %s\n", marker, i+1, label)
		}
		_, _ = fmt.Fprintf(t.out, "  choice [%d]: ", def+1)

		line, err := t.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return def, err
		}

		if line == "" {
			return def, nil
		}

		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(labels) {
			return n - 1, nil
		}

		_, _ = fmt.Fprintf(t.out, "  %s\n", color.YellowString("please enter a number between 1 and %d", len(labels)))
		if err != nil {
			return def, err
		}
	}
}

func paint(tone Tone, s string) string {
	switch tone {
	case ToneLocal:
		return color.New(color.FgRed).Sprint(s)
	case ToneServer:
		return color.New(color.FgGreen).Sprint(s)
	default:
		return s
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
