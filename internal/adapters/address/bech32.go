package address

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

const maxAddressBytes = 255

// Bech32Validator accepts lower-case bech32 account addresses with the
// configured human-readable prefix ("cosmos", "juno", ...). An empty prefix
// accepts any prefix.
type Bech32Validator struct {
	prefix string
}

var _ ports.AddressValidator = (*Bech32Validator)(nil)

func NewBech32Validator(prefix string) *Bech32Validator {
	return &Bech32Validator{prefix: prefix}
}

func (v *Bech32Validator) Validate(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("%w: empty address", domain.ErrInvalidAddress)
	}
	// Only the normalized form is accepted, so the stored value is canonical.
	if address != strings.ToLower(address) {
		return "", fmt.Errorf("%w: address not normalized", domain.ErrInvalidAddress)
	}

	hrp, data, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAddress, err)
	}
	if v.prefix != "" && hrp != v.prefix {
		return "", fmt.Errorf("%w: expected prefix %q, got %q", domain.ErrInvalidAddress, v.prefix, hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAddress, err)
	}
	if len(raw) == 0 || len(raw) > maxAddressBytes {
		return "", fmt.Errorf("%w: invalid address length %d", domain.ErrInvalidAddress, len(raw))
	}

	return address, nil
}

// Encode builds a bech32 address from raw account bytes.
func Encode(prefix string, raw []byte) (string, error) {
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(prefix, data)
}
