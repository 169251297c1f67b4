package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rainsave/rainsave/internal/logging"
	"github.com/rainsave/rainsave/internal/tui"
	"github.com/rainsave/rainsave/internal/tui/components"
)

var titleCaser = cases.Title(language.English)

// planResourceLines renders the snapshot contents as one label per resource.
func planResourceLines(plan *RestorePlan) []string {
	name := plan.Name
	if name == "" {
		name = "(not in snapshot)"
	}
	cloud := "no"
	if plan.HasCloud {
		cloud = "yes"
	}

	entries := []struct {
		label string
		value string
	}{
		{"controller name", name},
		{"cloud settings", cloud},
		{"zones", fmt.Sprintf("%d", plan.Zones)},
		{"programs", fmt.Sprintf("%d", plan.Programs)},
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", titleCaser.String(entry.label), entry.value))
	}
	return lines
}

// tuiWorkflowUI shows the restore confirmation as a modal dialog. Passphrase
// prompts stay on the terminal, where echo suppression is reliable.
type tuiWorkflowUI struct {
	log      *logging.Logger
	fallback *cliWorkflowUI
}

func newTUIWorkflowUI(log *logging.Logger) *tuiWorkflowUI {
	return &tuiWorkflowUI{
		log:      log,
		fallback: newCLIWorkflowUI(log, os.Stdin, os.Stdout),
	}
}

// ShowRestorePlan is a no-op: the plan is embedded in the confirmation modal.
func (u *tuiWorkflowUI) ShowRestorePlan(plan *RestorePlan) error {
	return nil
}

func (u *tuiWorkflowUI) ConfirmRestore(plan *RestorePlan) (bool, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Snapshot: %s\n", plan.SourceFile)
	fmt.Fprintf(&b, "Target controller: %s\n\n", plan.Host)
	for _, line := range planResourceLines(plan) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nOverwrite the controller settings with this snapshot?")

	app := tui.NewApp()
	confirmed, err := components.ShowConfirm(app, "Confirm Restore", b.String())
	if err != nil {
		// A broken TUI must not silently approve a destructive write.
		u.log.Warning("TUI unavailable (%v), falling back to plain prompt", err)
		if showErr := u.fallback.ShowRestorePlan(plan); showErr != nil {
			return false, showErr
		}
		return u.fallback.ConfirmRestore(plan)
	}
	return confirmed, nil
}

func (u *tuiWorkflowUI) ShowRestoreResult(plan *RestorePlan, applyErr error) error {
	app := tui.NewApp()

	var err error
	if applyErr != nil {
		message := fmt.Sprintf("Restore of %s failed:\n\n%v\n\nThe controller may hold a partial restore.", plan.Host, applyErr)
		err = components.ShowError(app, "Restore Failed", message)
	} else {
		message := fmt.Sprintf("Restore of %s finished.\n\n%s", plan.Host, strings.Join(planResourceLines(plan), "\n"))
		err = components.ShowInfo(app, "Restore Complete", message)
	}
	if err != nil {
		u.log.Warning("TUI unavailable (%v), falling back to plain output", err)
		return u.fallback.ShowRestoreResult(plan, applyErr)
	}
	return nil
}

func (u *tuiWorkflowUI) ReadPassphrase(ctx context.Context, prompt string, confirm bool) (string, error) {
	return u.fallback.ReadPassphrase(ctx, prompt, confirm)
}
