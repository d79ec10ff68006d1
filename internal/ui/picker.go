package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/specvital/phpunit-runner/pkg/domain"
)

// PromptPicker asks for a choice on a terminal by number.
// An empty answer, "q" or end of input dismisses the prompt.
type PromptPicker struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptPicker creates a picker reading answers from in.
func NewPromptPicker(in io.Reader, out io.Writer) *PromptPicker {
	return &PromptPicker{in: bufio.NewReader(in), out: out}
}

func (p *PromptPicker) Pick(ctx context.Context, prompt string, options []string) (string, error) {
	if len(options) == 0 {
		return "", domain.ErrSelectionCancelled
	}

	color.New(color.FgCyan, color.Bold).Fprintln(p.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %s %s\n", color.CyanString("%2d)", i+1), opt)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(p.out, "Choice (empty to cancel): ")

		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer == "" || strings.EqualFold(answer, "q") {
			return "", domain.ErrSelectionCancelled
		}

		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		if err != nil {
			return "", domain.ErrSelectionCancelled
		}
		color.New(color.FgYellow).Fprintf(p.out, "Enter a number between 1 and %d\n", len(options))
	}
}
