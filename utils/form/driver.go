package form

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

// ErrAborted signals the user aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("form: aborted")

// InputConfig configures a single line prompt.
type InputConfig struct {
	Message string
	Default string
	Help    string
}

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// PromptDriver abstracts the terminal so collection logic can be tested
// without one.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
}

// NewDriver returns a survey driver when in is a terminal and a plain line
// reader otherwise.
func NewDriver(in *os.File, out io.Writer) PromptDriver {
	if term.IsTerminal(int(in.Fd())) {
		return &surveyDriver{}
	}
	return NewLineDriver(in, out)
}

type surveyDriver struct{}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	prompt := &survey.Confirm{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// LineDriver reads answers line by line, for piped input.
type LineDriver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineDriver creates a driver reading from in and writing prompts to out.
func NewLineDriver(in io.Reader, out io.Writer) *LineDriver {
	return &LineDriver{in: bufio.NewReader(in), out: out}
}

func (d *LineDriver) readLine(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(d.out, "%s ", message)
	line, err := d.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (d *LineDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	line, err := d.readLine(ctx, cfg.Message)
	if err != nil {
		return "", err
	}
	if line == "" {
		return cfg.Default, nil
	}
	return line, nil
}

func (d *LineDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	hint := "[y/N]"
	if cfg.Default {
		hint = "[Y/n]"
	}
	for {
		line, err := d.readLine(ctx, cfg.Message+" "+hint)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return cfg.Default, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(d.out, "Please answer yes or no.")
	}
}
