package order

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// AssetData is the opaque byte string identifying an asset for matching.
// Two values identify the same asset only if their bytes are identical.
type AssetData []byte

// Proxy ids prefix encoded asset data:
//
//	ERC20:  bytes4(keccak256("ERC20Token(address)"))          = 0xf47261b0
//	ERC721: bytes4(keccak256("ERC721Token(address,uint256)")) = 0x02571792
var (
	ERC20ProxyID  = proxyID("ERC20Token(address)")
	ERC721ProxyID = proxyID("ERC721Token(address,uint256)")
)

const (
	proxyIDLen       = 4
	erc20AssetLen    = proxyIDLen + 32
	erc721AssetLen   = proxyIDLen + 64
	addressWordStart = proxyIDLen + 12
)

func proxyID(signature string) [proxyIDLen]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var id [proxyIDLen]byte
	copy(id[:], h.Sum(nil))
	return id
}

// Equal reports whether a and b are byte-for-byte identical.
func (a AssetData) Equal(b AssetData) bool {
	return bytes.Equal(a, b)
}

// Hex returns the lowercase 0x-prefixed encoding.
func (a AssetData) Hex() string {
	return "0x" + hex.EncodeToString(a)
}

func (a AssetData) String() string { return a.Hex() }

// Clone returns a copy that shares no memory with a.
func (a AssetData) Clone() AssetData {
	if a == nil {
		return nil
	}
	return append(AssetData{}, a...)
}

// AssetDataFromHex parses a 0x-prefixed hex string. Hex digits are read
// case-insensitively, so "0xAB" and "0xab" give the same bytes. It is
// more lenient than the wire form, which only accepts lowercase.
func AssetDataFromHex(s string) (AssetData, error) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, fmt.Errorf("asset data %q: missing 0x prefix", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("asset data %q: %w", s, err)
	}
	return AssetData(b), nil
}

// EncodeERC20AssetData encodes the asset data of an ERC20 token.
func EncodeERC20AssetData(token common.Address) AssetData {
	out := make(AssetData, erc20AssetLen)
	copy(out, ERC20ProxyID[:])
	copy(out[addressWordStart:], token.Bytes())
	return out
}

// EncodeERC721AssetData encodes the asset data of a single ERC721 token id.
func EncodeERC721AssetData(token common.Address, tokenID *big.Int) AssetData {
	out := make(AssetData, erc721AssetLen)
	copy(out, ERC721ProxyID[:])
	copy(out[addressWordStart:], token.Bytes())
	if tokenID != nil {
		tokenID.FillBytes(out[erc20AssetLen:])
	}
	return out
}

// DecodedAssetData describes asset data whose proxy is known.
type DecodedAssetData struct {
	ProxyID      [proxyIDLen]byte
	TokenAddress common.Address
	TokenID      *big.Int // ERC721 only
}

// IsERC20 reports whether d was encoded for the ERC20 proxy.
func (d DecodedAssetData) IsERC20() bool { return d.ProxyID == ERC20ProxyID }

// IsERC721 reports whether d was encoded for the ERC721 proxy.
func (d DecodedAssetData) IsERC721() bool { return d.ProxyID == ERC721ProxyID }

// DecodeAssetData decodes ERC20 and ERC721 asset data. It is used for display
// and for picking a token contract; queries never decode.
func DecodeAssetData(a AssetData) (DecodedAssetData, error) {
	if len(a) < proxyIDLen {
		return DecodedAssetData{}, fmt.Errorf("asset data too short: %d bytes", len(a))
	}
	var d DecodedAssetData
	copy(d.ProxyID[:], a[:proxyIDLen])

	switch d.ProxyID {
	case ERC20ProxyID:
		if len(a) != erc20AssetLen {
			return DecodedAssetData{}, fmt.Errorf("erc20 asset data: want %d bytes, got %d", erc20AssetLen, len(a))
		}
	case ERC721ProxyID:
		if len(a) != erc721AssetLen {
			return DecodedAssetData{}, fmt.Errorf("erc721 asset data: want %d bytes, got %d", erc721AssetLen, len(a))
		}
		d.TokenID = new(big.Int).SetBytes(a[erc20AssetLen:])
	default:
		return DecodedAssetData{}, fmt.Errorf("unknown asset proxy id 0x%x", d.ProxyID)
	}
	d.TokenAddress = common.BytesToAddress(a[addressWordStart:erc20AssetLen])
	return d, nil
}
