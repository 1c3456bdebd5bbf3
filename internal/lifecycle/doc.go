// Package lifecycle sequences the local backend from application start to exit.
//
// The Coordinator owns the backend endpoint and process handle for the whole
// run and drives this state machine:
//
//	Idle -> Allocating -> Launching -> Probing -> Ready | DegradedReady -> Running
//	Allocating | Launching -> Failed
//	any live state -> Terminating -> Terminated
//
// Allocation and spawn failures are fatal: the user sees a blocking error
// dialog and the application exits. A backend that does not answer its health
// check in time is not fatal; the window opens anyway (DegradedReady) and the
// UI shows connection errors until the backend catches up.
//
// Shutdown always terminates the backend at most once. Termination errors are
// logged and swallowed because the application is exiting regardless.
//
// Observers are told about every transition (launch history, MQTT, InfluxDB,
// status API). Their failures are logged and never affect the state machine.
package lifecycle
