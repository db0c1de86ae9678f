package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartlock/internal/lockstate"
)

func TestPagesCarryMarker(t *testing.T) {
	for _, s := range []lockstate.State{lockstate.Locked, lockstate.Unlocked} {
		assert.Contains(t, string(Page(s)), NoErrorMarker, s.String())
	}
	assert.Contains(t, string(Page(lockstate.Locked)), ">Locked<")
	assert.Contains(t, string(Page(lockstate.Unlocked)), ">Unlocked<")
}

func TestAppendResponse(t *testing.T) {
	tests := []struct {
		name          string
		state         lockstate.State
		badCredential bool
	}{
		{"locked ok", lockstate.Locked, false},
		{"unlocked ok", lockstate.Unlocked, false},
		{"locked bad credential", lockstate.Locked, true},
		{"unlocked bad credential", lockstate.Unlocked, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := AppendResponse(nil, tt.state, tt.badCredential)

			require.True(t, bytes.HasPrefix(resp, []byte(StatusLine)))
			body := string(resp[len(StatusLine):])

			want := string(Page(tt.state))
			if tt.badCredential {
				want = strings.ReplaceAll(want, NoErrorMarker, ErrorMarker)
				assert.NotContains(t, body, NoErrorMarker)
			}
			assert.Equal(t, want, body)
		})
	}
}

func TestAppendResponseReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 4096)
	resp := AppendResponse(buf, lockstate.Locked, true)
	require.LessOrEqual(t, len(resp), cap(buf))
	assert.Equal(t, &buf[:1][0], &resp[:1][0])

	// Rendering must not modify the embedded document.
	assert.Contains(t, string(Page(lockstate.Locked)), NoErrorMarker)
}

func TestParseDocument(t *testing.T) {
	for _, st := range []lockstate.State{lockstate.Locked, lockstate.Unlocked} {
		for _, bad := range []bool{false, true} {
			resp := AppendResponse(nil, st, bad)
			gotState, gotBad, err := ParseDocument(resp[len(StatusLine):])
			require.NoError(t, err)
			assert.Equal(t, st, gotState)
			assert.Equal(t, bad, gotBad)
		}
	}

	_, _, err := ParseDocument([]byte("<html></html>"))
	assert.ErrorIs(t, err, ErrUnknownDocument)
}
