// Package viz draws a running network in the terminal with Bubble Tea.
//
// [Model] advances the network on every frame and shows the recent
// activity of each unit as a sparkline, a larger plot of the selected unit,
// and the phase trail of the first plant when there is one.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	Up/Dn - Select unit
//	+/-   - Steps per frame
//	?     - Show help
//	Q     - Quit
package viz
