// Package ui renders smartlock-cli output.
//
// Output follows a "run once and exit" pattern: a header box naming the
// command and its parameters, an optional spinner while the network is
// busy, then a success, warning or failure box.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Unlock", "smartlock-cli unlock", map[string]string{
//	    "Controller": "https://192.168.1.50",
//	})
//	p.PrintResult(ui.NewStateResult("Controller unlocked", url, lockstate.Unlocked))
//
// Widths come from the terminal and are clamped between MinTerminalWidth and
// MaxContentWidth. When stdout is not a terminal the spinner is skipped.
package ui
