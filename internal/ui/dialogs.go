package ui

import (
	"errors"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
)

// ShowError presents a blocking error dialog, used for failures before the
// emulator window exists (unreadable ROM, device init).
func ShowError(title, message string) {
	a := app.New()
	w := a.NewWindow(title)
	d := dialog.NewError(errors.New(message), w)
	d.SetOnClosed(func() { a.Quit() })
	w.Show()
	d.Show()
	a.Run()
}

// Confirm presents a blocking yes/no dialog and reports the choice; the
// hardware-reset hotkey routes through it.
func Confirm(title, message string) bool {
	a := app.New()
	w := a.NewWindow(title)
	result := false
	d := dialog.NewConfirm(title, message, func(ok bool) {
		result = ok
		a.Quit()
	}, w)
	w.Show()
	d.Show()
	a.Run()
	return result
}
