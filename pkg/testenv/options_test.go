package testenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		spec    string
		key     string
		num     uint16
		wantErr bool
	}{
		{spec: "5432/tcp", key: "5432/tcp", num: 5432},
		{spec: "6379", key: "6379/tcp", num: 6379},
		{spec: "53/UDP", key: "53/udp", num: 53},
		{spec: "", wantErr: true},
		{spec: "0", wantErr: true},
		{spec: "70000", wantErr: true},
		{spec: "80/icmp", wantErr: true},
		{spec: "http", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			p, err := parsePort(tt.spec)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, p.key)
			assert.Equal(t, tt.num, p.num)
			assert.False(t, p.port.IsZero())
		})
	}
}
