// Package wifi keeps the controller associated with its wireless network.
//
// The Supervisor runs as one background task for the life of the process.
// It moves through four states:
//
//	Disconnected -> Starting -> Connecting -> Connected
//	     ^                          |             |
//	     +------ 5s backoff --------+-------------+
//
// While Connected it blocks until the radio reports disassociation, waits a
// fixed backoff, then re-evaluates. If the radio has never been started it is
// configured from the network name and password and started; a start failure
// is a driver or configuration fault and ends the process. Association
// failures are logged and retried forever after the same backoff.
//
// The Supervisor does not report readiness to the serving workers. The radio
// driver raises and lowers the network stack's link flag and the workers poll
// that flag.
package wifi
