package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRequestLine(t *testing.T) {
	tests := []struct {
		name   string
		buf    string
		atEOF  bool
		want   string
		wantOK bool
	}{
		{
			name:   "complete request",
			buf:    "GET /unlock?password=abc123 HTTP/1.0\r\nHost: lock\r\n\r\n",
			want:   "GET /unlock?password=abc123 HTTP/1.0",
			wantOK: true,
		},
		{
			name: "request line without terminator",
			buf:  "GET /lock?password=abc",
		},
		{
			name:   "unterminated request line at EOF",
			buf:    "GET /lock?password=abc",
			atEOF:  true,
			want:   "GET /lock?password=abc",
			wantOK: true,
		},
		{
			name:   "bare newline terminator",
			buf:    "GET /status HTTP/1.0\n",
			want:   "GET /status HTTP/1.0",
			wantOK: true,
		},
		{
			name:   "GET line after other lines",
			buf:    "\r\nPRI * HTTP/2.0\r\nGET / HTTP/1.1\r\n",
			want:   "GET / HTTP/1.1",
			wantOK: true,
		},
		{name: "no GET line", buf: "POST /lock?password=abc HTTP/1.0\r\n\r\n"},
		{name: "empty", buf: ""},
		{name: "partial method", buf: "GE", atEOF: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindRequestLine([]byte(tt.buf), tt.atEOF)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderComplete(t *testing.T) {
	assert.False(t, HeaderComplete([]byte("GET / HTTP/1.0\r\n")))
	assert.False(t, HeaderComplete([]byte("GET / HTTP/1.0\n\n")))
	assert.True(t, HeaderComplete([]byte("GET / HTTP/1.0\r\n\r\n")))
	assert.True(t, HeaderComplete([]byte("GET / HTTP/1.0\r\nHost: x\r\n\r\ntrailing")))
}

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		token   string
		want    string
		wantErr error
	}{
		{
			name:  "lock credential",
			line:  "GET /lock?password=abc123 HTTP/1.0",
			token: LockToken,
			want:  "abc123",
		},
		{
			name:  "unlock credential",
			line:  "GET /unlock?password=s3cr3t HTTP/1.1",
			token: UnlockToken,
			want:  "s3cr3t",
		},
		{
			name:  "empty credential",
			line:  "GET /lock?password= HTTP/1.0",
			token: LockToken,
			want:  "",
		},
		{
			name:  "credential keeps trailing query",
			line:  "GET /lock?password=abc&x=1 HTTP/1.0",
			token: LockToken,
			want:  "abc&x=1",
		},
		{
			name:    "token absent",
			line:    "GET /status HTTP/1.0",
			token:   LockToken,
			wantErr: ErrNoMatch,
		},
		{
			name:    "token split by whitespace",
			line:    "GET /lock?pass word=abc HTTP/1.0",
			token:   LockToken,
			wantErr: ErrNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCredential(tt.line, tt.token)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
