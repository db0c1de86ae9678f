package control

import (
	"bytes"
	"errors"
	"strings"
)

// Path tokens for the two recognised actions. The credential follows the token.
const (
	LockToken   = "/lock?password="
	UnlockToken = "/unlock?password="
)

// ErrNoMatch is returned when no whitespace-delimited field of the request
// line contains the requested token.
var ErrNoMatch = errors.New("no field matches control token")

var getPrefix = []byte("GET")

// FindRequestLine returns the first line of buf that begins with the GET
// method. Only newline-terminated lines are considered unless atEOF is set,
// in which case a trailing unterminated line is examined too; this keeps a
// request line that arrives split across reads from being acted on early.
//
// Bytes are interpreted as text without validating the encoding; only the
// ASCII request line is meaningful.
func FindRequestLine(buf []byte, atEOF bool) (string, bool) {
	for len(buf) > 0 {
		line := buf
		rest := []byte(nil)
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			line, rest = buf[:i], buf[i+1:]
		} else if !atEOF {
			return "", false
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if bytes.HasPrefix(line, getPrefix) {
			return string(line), true
		}
		buf = rest
	}
	return "", false
}

// HeaderComplete reports whether buf contains the blank line that ends an
// HTTP header block.
func HeaderComplete(buf []byte) bool {
	return bytes.Contains(buf, []byte("\r\n\r\n"))
}

// ExtractCredential finds the first whitespace-delimited field of line that
// contains token and returns the text following the token within that field.
func ExtractCredential(line, token string) (string, error) {
	for _, field := range strings.Fields(line) {
		if i := strings.Index(field, token); i >= 0 {
			return field[i+len(token):], nil
		}
	}
	return "", ErrNoMatch
}
