package components

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rainsave/rainsave/internal/tui"
)

// ShowConfirm displays a Yes/No confirmation modal and blocks until the
// operator picks a button. Returns false when the app is interrupted, so an
// aborted dialog never counts as consent.
func ShowConfirm(app *tui.App, title, message string) (bool, error) {
	if !strings.Contains(message, "[yellow]") {
		message = message + "\n\n[yellow]Use TAB or ←→ Arrows to switch | Press ENTER to select[white]"
	}

	confirmed := false
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			confirmed = buttonLabel == "Yes"
			app.Stop()
		})

	modal.SetBorder(true).
		SetTitle(" " + title + " ").
		SetTitleAlign(tview.AlignCenter).
		SetTitleColor(tui.RainBlue).
		SetBorderColor(tui.RainBlue).
		SetBackgroundColor(tcell.ColorBlack)

	app.SetRoot(modal, true).SetFocus(modal)
	if err := app.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// ShowInfo displays an informational modal and blocks until dismissed.
func ShowInfo(app *tui.App, title, message string) error {
	return showNotice(app, title, message, "info")
}

// ShowError displays an error modal and blocks until dismissed.
func ShowError(app *tui.App, title, message string) error {
	return showNotice(app, title, message, "error")
}

// showNotice renders a one-button modal styled by the shared status palette.
func showNotice(app *tui.App, title, message, status string) error {
	color := tui.StatusColor(status)
	message = tui.StatusSymbol(status) + " " + message
	message = message + "\n\n[yellow]Press ENTER to continue[white]"

	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			app.Stop()
		})

	modal.SetBorder(true).
		SetTitle(" " + title + " ").
		SetTitleAlign(tview.AlignCenter).
		SetTitleColor(color).
		SetBorderColor(color).
		SetBackgroundColor(tcell.ColorBlack)

	app.SetRoot(modal, true).SetFocus(modal)
	return app.Run()
}
