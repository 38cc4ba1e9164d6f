// Package control provides the autopilots used to fly runs without an
// external flight stack.
//
// Controllers implement [dynamo.Controller] and return actuator commands in
// the layout the selected dynamics expects:
//
//   - [None]: zero command, the vehicle stays idle or falls
//   - [Manual]: a constant command vector
//   - [Hover]: altitude and attitude hold built on [PID]
//
// # Usage
//
//	hover := control.NewHover(control.LayoutInno, dynamo.NotationNED, params)
//	sim := dynamo.New(dyn, hover)
//	// Controller.Compute is called each timestep with the latest snapshot
//
// [PID] supports live tuning through GetParams and SetParam.
package control
