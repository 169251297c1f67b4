package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rainsave/rainsave/internal/logging"
)

// WorkflowUI abstracts operator interaction so workflows run unchanged under
// the TUI, plain prompts, or test doubles.
type WorkflowUI interface {
	ShowRestorePlan(plan *RestorePlan) error
	ConfirmRestore(plan *RestorePlan) (bool, error)
	ShowRestoreResult(plan *RestorePlan, applyErr error) error
	ReadPassphrase(ctx context.Context, prompt string, confirm bool) (string, error)
}

// NewWorkflowUI picks the TUI when both ends of the terminal are interactive,
// unless the operator forced plain prompts with --cli.
func NewWorkflowUI(log *logging.Logger, forceCLI bool) WorkflowUI {
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && !forceCLI {
		return newTUIWorkflowUI(log)
	}
	return newCLIWorkflowUI(log, os.Stdin, os.Stdout)
}

type cliWorkflowUI struct {
	log *logging.Logger
	in  io.Reader
	out io.Writer
}

func newCLIWorkflowUI(log *logging.Logger, in io.Reader, out io.Writer) *cliWorkflowUI {
	return &cliWorkflowUI{log: log, in: in, out: out}
}

func (u *cliWorkflowUI) ShowRestorePlan(plan *RestorePlan) error {
	fmt.Fprintln(u.out, "")
	fmt.Fprintln(u.out, "Restore plan")
	fmt.Fprintf(u.out, "  Source file: %s\n", plan.SourceFile)
	fmt.Fprintf(u.out, "  Controller:  %s\n", plan.Host)
	for _, line := range planResourceLines(plan) {
		fmt.Fprintf(u.out, "  %s\n", line)
	}
	fmt.Fprintln(u.out, "")
	return nil
}

func (u *cliWorkflowUI) ConfirmRestore(plan *RestorePlan) (bool, error) {
	fmt.Fprintf(u.out, "Overwrite the settings on %s with this snapshot? [y/N]: ", plan.Host)

	reader := bufio.NewReader(u.in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (u *cliWorkflowUI) ShowRestoreResult(plan *RestorePlan, applyErr error) error {
	fmt.Fprintln(u.out, "")
	if applyErr != nil {
		fmt.Fprintf(u.out, "Restore of %s failed: %v\n", plan.Host, applyErr)
		fmt.Fprintln(u.out, "The controller may hold a partial restore, run again once the cause is fixed.")
		return nil
	}
	fmt.Fprintf(u.out, "Restore of %s finished: %d zones, %d programs\n", plan.Host, plan.Zones, plan.Programs)
	return nil
}

func (u *cliWorkflowUI) ReadPassphrase(ctx context.Context, prompt string, confirm bool) (string, error) {
	first, err := u.readSecret(ctx, prompt+": ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return first, nil
	}

	second, err := u.readSecret(ctx, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// readSecret hides input when stdin is a terminal and falls back to a plain
// line read otherwise (pipes, tests).
func (u *cliWorkflowUI) readSecret(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(u.out, prompt)

	if f, ok := u.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := readPasswordWithContext(ctx, int(f.Fd()))
		fmt.Fprintln(u.out, "")
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	reader := bufio.NewReader(u.in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPasswordWithContext runs term.ReadPassword in a goroutine so the prompt
// honors cancellation. The goroutine leaks until the next read if the context
// fires first, which is acceptable for a process about to exit.
func readPasswordWithContext(ctx context.Context, fd int) ([]byte, error) {
	type readResult struct {
		data []byte
		err  error
	}

	ch := make(chan readResult, 1)
	go func() {
		data, err := term.ReadPassword(fd)
		ch <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.data, res.err
	}
}
