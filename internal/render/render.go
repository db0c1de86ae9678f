// Package render produces the control endpoint's HTTP response.
//
// One of two fixed documents is chosen by the current lock state. When the
// request carried a wrong or missing credential the document's hidden
// "no-error" marker is switched to "error" so the page shows the warning.
package render

import (
	"bytes"
	_ "embed"
	"errors"

	"github.com/muurk/smartlock/internal/lockstate"
)

// StatusLine is the fixed response head. No headers are sent.
const StatusLine = "HTTP/1.0 200 OK\r\n\r\n"

// Marker strings swapped on a bad credential.
const (
	NoErrorMarker = "no-error"
	ErrorMarker   = "error"
)

//go:embed pages/locked.html
var lockedPage []byte

//go:embed pages/unlocked.html
var unlockedPage []byte

// Page returns the document for state, unmodified.
func Page(state lockstate.State) []byte {
	if state == lockstate.Locked {
		return lockedPage
	}
	return unlockedPage
}

// AppendResponse appends the full response (status line and document) to
// dst and returns the extended slice. Passing a reused buffer sliced to
// zero length avoids allocation when it is large enough.
func AppendResponse(dst []byte, state lockstate.State, badCredential bool) []byte {
	dst = append(dst, StatusLine...)
	page := Page(state)

	if !badCredential {
		return append(dst, page...)
	}

	marker := []byte(NoErrorMarker)
	for {
		i := bytes.Index(page, marker)
		if i < 0 {
			break
		}
		dst = append(dst, page[:i]...)
		dst = append(dst, ErrorMarker...)
		page = page[i+len(marker):]
	}
	return append(dst, page...)
}

// ErrUnknownDocument is returned by ParseDocument for a body that is not
// one of the four page variants.
var ErrUnknownDocument = errors.New("unrecognised controller page")

// ParseDocument identifies a response body produced by AppendResponse.
func ParseDocument(doc []byte) (state lockstate.State, badCredential bool, err error) {
	for _, st := range []lockstate.State{lockstate.Locked, lockstate.Unlocked} {
		for _, bad := range []bool{false, true} {
			if bytes.Equal(doc, AppendResponse(nil, st, bad)[len(StatusLine):]) {
				return st, bad, nil
			}
		}
	}
	return lockstate.Locked, false, ErrUnknownDocument
}
