package netaddr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Address
		wantErr bool
	}{
		{name: "typical LAN address", in: "192.168.1.50", want: Address{192, 168, 1, 50}},
		{name: "all zero", in: "0.0.0.0", want: Address{}},
		{name: "all max", in: "255.255.255.255", want: Address{255, 255, 255, 255}},
		{name: "too few parts", in: "192.168.1", wantErr: true},
		{name: "too many parts", in: "1.2.3.4.5", wantErr: true},
		{name: "octet out of range", in: "192.168.1.256", wantErr: true},
		{name: "negative", in: "192.168.-1.5", wantErr: true},
		{name: "leading zero", in: "192.168.01.5", wantErr: true},
		{name: "empty octet", in: "192..1.5", wantErr: true},
		{name: "whitespace", in: " 192.168.1.5", wantErr: true},
		{name: "hostname", in: "lock.local", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedAddress))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	samples := []int{0, 1, 9, 10, 99, 100, 199, 200, 254, 255}
	for _, a := range samples {
		for _, b := range samples {
			in := fmt.Sprintf("%d.%d.%d.%d", a, b, 255-a, 255-b)
			addr, err := Parse(in)
			require.NoError(t, err, in)
			assert.Equal(t, in, addr.String())
		}
	}
}

func TestAddressHelpers(t *testing.T) {
	addr := MustParse("10.0.0.7")
	assert.Equal(t, "10.0.0.7/24", addr.Prefix(24))
	assert.Equal(t, "10.0.0.7", addr.IP().String())
	assert.False(t, addr.IsUnspecified())
	assert.True(t, Address{}.IsUnspecified())
	assert.Panics(t, func() { MustParse("10.0.0") })
}
