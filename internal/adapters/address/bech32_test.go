package address

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/tally/internal/core/domain"
)

func mustEncode(t *testing.T, prefix string, raw []byte) string {
	t.Helper()
	addr, err := Encode(prefix, raw)
	require.NoError(t, err)
	return addr
}

func TestBech32ValidatorAcceptsValidAddress(t *testing.T) {
	v := NewBech32Validator("cosmos")
	addr := mustEncode(t, "cosmos", bytes.Repeat([]byte{0xab}, 20))

	got, err := v.Validate(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
	assert.True(t, strings.HasPrefix(got, "cosmos1"))
}

func TestBech32ValidatorRejects(t *testing.T) {
	v := NewBech32Validator("cosmos")
	valid := mustEncode(t, "cosmos", bytes.Repeat([]byte{0x01}, 20))

	tests := []struct {
		name    string
		address string
	}{
		{name: "empty", address: ""},
		{name: "upper case", address: strings.ToUpper(valid)},
		{name: "garbage", address: "not-an-address"},
		{name: "bad checksum", address: valid[:len(valid)-1] + flip(valid[len(valid)-1])},
		{name: "wrong prefix", address: mustEncode(t, "juno", bytes.Repeat([]byte{0x01}, 20))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.address)
			assert.ErrorIs(t, err, domain.ErrInvalidAddress)
		})
	}
}

func TestBech32ValidatorWithoutPrefixAcceptsAnyPrefix(t *testing.T) {
	v := NewBech32Validator("")

	_, err := v.Validate(mustEncode(t, "juno", bytes.Repeat([]byte{0x02}, 32)))
	assert.NoError(t, err)
}

func flip(c byte) string {
	if c == 'q' {
		return "p"
	}
	return "q"
}
