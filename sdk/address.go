package sdk

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type AddressDomain string

const (
	AddressDomainUser     AddressDomain = "user"
	AddressDomainContract AddressDomain = "contract"
	AddressDomainSystem   AddressDomain = "system"
)

type AddressType string

const (
	AddressTypeEVM      AddressType = "evm"
	AddressTypeKey      AddressType = "key"
	AddressTypeHive     AddressType = "hive"
	AddressTypeContract AddressType = "contract"
	AddressTypeSystem   AddressType = "system"
	AddressTypeUnknown  AddressType = "unknown"
)

const didEVMPrefix = "did:pkh:eip155:"

// ZeroAddress is the mint source on badge issuance records.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

type Address string

// String returns the literal representation (like hive:alice) of the address.
// Example payload: sdk.Address("hive:foo").String()
func (a Address) String() string {
	return string(a)
}

// Domain quickly checks the prefix to guess if we deal with user/contract/system domain.
// Example payload: sdk.Address("contract:campaign-1").Domain()
func (a Address) Domain() AddressDomain {
	if strings.HasPrefix(a.String(), "system:") {
		return AddressDomainSystem
	}
	if strings.HasPrefix(a.String(), "contract:") {
		return AddressDomainContract
	}
	return AddressDomainUser
}

// Type inspects the prefix to categorize the address (evm, key, hive,...).
// Bare 0x hex and did:pkh:eip155 both count as evm.
// Example payload: sdk.Address("0x52908400098527886E0F7030069857D2E4169EE7").Type()
func (a Address) Type() AddressType {
	s := a.String()
	switch {
	case common.IsHexAddress(s):
		return AddressTypeEVM
	case strings.HasPrefix(s, didEVMPrefix):
		if common.IsHexAddress(evmTail(s)) {
			return AddressTypeEVM
		}
		return AddressTypeUnknown
	case strings.HasPrefix(s, "did:key:") && len(s) > len("did:key:"):
		return AddressTypeKey
	case strings.HasPrefix(s, "hive:") && len(s) > len("hive:"):
		return AddressTypeHive
	case strings.HasPrefix(s, "contract:") && len(s) > len("contract:"):
		return AddressTypeContract
	case strings.HasPrefix(s, "system:") && len(s) > len("system:"):
		return AddressTypeSystem
	default:
		return AddressTypeUnknown
	}
}

// IsValid returns false if the address type detection failed, used as a light sanity check.
// Example payload: sdk.Address("foo").IsValid()
func (a Address) IsValid() bool {
	return a.Type() != AddressTypeUnknown
}

// IsZero reports the all-zero evm address (and the empty string).
func (a Address) IsZero() bool {
	if a == "" {
		return true
	}
	if a.Type() != AddressTypeEVM {
		return false
	}
	return common.HexToAddress(evmTail(a.String())) == (common.Address{})
}

// Normalize returns the canonical spelling so the same identity always maps to the same
// storage key. EVM addresses get the EIP-55 checksum, everything else is trimmed.
// Example payload: sdk.Address("0xabc...").Normalize()
func (a Address) Normalize() Address {
	s := strings.TrimSpace(a.String())
	if common.IsHexAddress(s) {
		return Address(common.HexToAddress(s).Hex())
	}
	if strings.HasPrefix(s, didEVMPrefix) && common.IsHexAddress(evmTail(s)) {
		head := s[:strings.LastIndex(s, ":")+1]
		return Address(head + common.HexToAddress(evmTail(s)).Hex())
	}
	return Address(s)
}

// evmTail returns the hex part of a did:pkh:eip155:<chain>:<hex> address or the input itself.
func evmTail(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}
