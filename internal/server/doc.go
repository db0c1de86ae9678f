// Package server implements the TLS control endpoint of the lock controller.
//
// A fixed pool of workers shares one listener. Each worker repeatedly checks
// out a receive and transmit buffer pair, accepts one connection, wraps it in
// a fresh TLS session, reads a single HTTP/1.0-style request and answers it
// with the page for the current lock state.
//
// # Request handling
//
// Bytes are accumulated in the worker's receive buffer until the header block
// ends, the peer stops sending, the read deadline passes or the buffer fills.
// The first complete line beginning with GET is handed to the request handler
// exactly once per connection:
//
//	GET /unlock?password=<secret> HTTP/1.0
//	GET /lock?password=<secret> HTTP/1.0
//
// Any other path is answered with the current page and changes nothing. The
// response is always
//
//	HTTP/1.0 200 OK\r\n
//	\r\n
//	<locked or unlocked page>
//
// written in one call.
//
// # Handshake failures
//
// Missing client certificates, a browser refusing the self-signed
// certificate, peers that disconnect or stall, and peers offering nothing
// we support only abandon the current connection. Any other handshake error
// is returned from Serve wrapped in ErrFatalHandshake. A failed response
// write is also fatal.
//
// # Teardown
//
// Every connection is closed and then aborted before the worker accepts again:
// close_notify and a TCP half-close are sent, then the socket is reset with a
// zero linger. A successful response is followed by a grace period so the
// peer can read it before the socket goes away.
package server
