package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/ocr"
)

// CommandPrinter prints by running an external command (lpr by default)
// with the document path as its final argument.
type CommandPrinter struct {
	Command string
	Args    []string
	Runner  ocr.Runner
}

// NewCommandPrinter returns nil when command is empty, which disables printing.
func NewCommandPrinter(command string, args []string, runner ocr.Runner) *CommandPrinter {
	if command == "" {
		return nil
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	return &CommandPrinter{Command: command, Args: args, Runner: runner}
}

// Print runs the command for path. A nil printer is a no-op.
func (p *CommandPrinter) Print(ctx context.Context, path string) error {
	if p == nil {
		return nil
	}
	args := append(append([]string{}, p.Args...), path)
	_, stderr, err := p.Runner.Run(ctx, p.Command, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return common.NewAppError(common.CodePrint, msg, fmt.Errorf("%w: %w", common.ErrPrintFailure, err))
	}
	return nil
}
