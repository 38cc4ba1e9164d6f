// Package viz draws flights in the terminal.
//
//   - [Live]: a Bubble Tea view that flies a vehicle in real time with a
//     top-down braille track, a telemetry panel and an altitude graph
//   - [PlotRun]: asciigraph plots of a stored run, one column at a time
//
// # Key Bindings (live view)
//
//	Space - Pause/Resume
//	A     - Arm/Disarm
//	C     - Cycle calibration case
//	R     - Land and restart from the initial pose
//	Up/Dn - Raise/lower the hover target
//	Q     - Quit
package viz
