// Package control extracts lock/unlock intent from a received request and
// applies it to the shared lock register.
//
// The control endpoint recognises exactly two request paths:
//
//	GET /lock?password=<secret> HTTP/1.0
//	GET /unlock?password=<secret> HTTP/1.0
//
// Anything else is answered with the current state page and causes no state
// change. Request bytes are inspected as they accumulate; FindRequestLine can
// be called repeatedly on a growing buffer and Controller.Handle is called at
// most once per connection.
package control
