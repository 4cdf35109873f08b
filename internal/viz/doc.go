// Package viz provides the terminal viewer for particle simulations.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [App]: preset picker with parameter tuning, then the live view
//   - [Model]: live view of one simulation with compartment curves
//   - [Canvas]: Braille-based pixel canvas, coloured per cell by phase
//   - Theme selection with 4 built-in color schemes
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to the same seed
//	N     - Reset with the next seed
//	+/-   - Double/halve simulation speed
//	A     - Anchor or release a random particle
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//
// # Recording
//
// The G key records the canvas as a GIF animation in the particle colours.
// Recordings are saved to dotsim.gif in the current directory.
package viz
