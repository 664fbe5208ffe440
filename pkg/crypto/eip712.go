package crypto

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// SignatureType is the trailing byte of a 0x order signature.
type SignatureType uint8

const (
	SignatureTypeEIP712  SignatureType = 0x02
	SignatureTypeEthSign SignatureType = 0x03
)

// signatureLen is V (1) + R (32) + S (32) + type (1).
const signatureLen = 66

// EIP712Domain is the 0x v2 exchange domain. v2 has no chain id; replay
// protection across deployments comes from the exchange address.
type EIP712Domain struct {
	Name              string
	Version           string
	VerifyingContract common.Address
}

// ExchangeDomain returns the domain orders for exchange are signed under
func ExchangeDomain(exchange common.Address) EIP712Domain {
	return EIP712Domain{
		Name:              "0x Protocol",
		Version:           "2",
		VerifyingContract: exchange,
	}
}

var orderTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": []apitypes.Type{
		{Name: "makerAddress", Type: "address"},
		{Name: "takerAddress", Type: "address"},
		{Name: "feeRecipientAddress", Type: "address"},
		{Name: "senderAddress", Type: "address"},
		{Name: "makerAssetAmount", Type: "uint256"},
		{Name: "takerAssetAmount", Type: "uint256"},
		{Name: "makerFee", Type: "uint256"},
		{Name: "takerFee", Type: "uint256"},
		{Name: "expirationTimeSeconds", Type: "uint256"},
		{Name: "salt", Type: "uint256"},
		{Name: "makerAssetData", Type: "bytes"},
		{Name: "takerAssetData", Type: "bytes"},
	},
}

// HashOrder returns the EIP-712 digest of o under the domain of its own
// exchange address. This is the 0x order hash.
func HashOrder(o *order.SignedOrder) (common.Hash, error) {
	if err := o.Validate("order"); err != nil {
		return common.Hash{}, err
	}
	domain := ExchangeDomain(o.ExchangeAddress)
	typedData := apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"makerAddress":          o.MakerAddress.Hex(),
			"takerAddress":          o.TakerAddress.Hex(),
			"feeRecipientAddress":   o.FeeRecipientAddress.Hex(),
			"senderAddress":         o.SenderAddress.Hex(),
			"makerAssetAmount":      o.MakerAssetAmount.String(),
			"takerAssetAmount":      o.TakerAssetAmount.String(),
			"makerFee":              o.MakerFee.String(),
			"takerFee":              o.TakerFee.String(),
			"expirationTimeSeconds": o.ExpirationTimeSeconds.String(),
			"salt":                  o.Salt.String(),
			"makerAssetData":        hexutil.Bytes(o.MakerAssetData),
			"takerAssetData":        hexutil.Bytes(o.TakerAssetData),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}
	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash order: %w", err)
	}

	// keccak256("\x19\x01" || domainSeparator || structHash)
	raw := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256Hash(raw), nil
}

// SignOrder sets o.Signature to an EIP-712 signature by signer. The order
// must otherwise be complete; a placeholder signature is enough to pass
// validation while hashing.
func SignOrder(signer *Signer, o *order.SignedOrder) error {
	if len(o.Signature) == 0 {
		o.Signature = []byte{byte(SignatureTypeEIP712)}
	}
	hash, err := HashOrder(o)
	if err != nil {
		return fmt.Errorf("failed to hash order: %w", err)
	}
	sig, err := signer.Sign(hash.Bytes())
	if err != nil {
		return fmt.Errorf("failed to sign order: %w", err)
	}
	o.Signature = toZeroExSignature(sig, SignatureTypeEIP712)
	return nil
}

// RecoverOrderSigner returns the address that signed o.
func RecoverOrderSigner(o *order.SignedOrder) (common.Address, error) {
	if len(o.Signature) != signatureLen {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(o.Signature))
	}
	hash, err := HashOrder(o)
	if err != nil {
		return common.Address{}, err
	}

	sigType := SignatureType(o.Signature[signatureLen-1])
	digest := hash.Bytes()
	switch sigType {
	case SignatureTypeEIP712:
	case SignatureTypeEthSign:
		digest = crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), hash.Bytes())
	default:
		return common.Address{}, fmt.Errorf("unsupported signature type 0x%02x", uint8(sigType))
	}

	rsv, err := fromZeroExSignature(o.Signature)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverAddress(digest, rsv)
}

// VerifyOrderSignature reports whether o was signed by its maker.
func VerifyOrderSignature(o *order.SignedOrder) (bool, error) {
	signer, err := RecoverOrderSigner(o)
	if err != nil {
		return false, err
	}
	return signer == o.MakerAddress, nil
}

// toZeroExSignature turns go-ethereum's [R || S || V] (V in {0,1}) into the
// 0x layout [V || R || S || type] with V in {27,28}.
func toZeroExSignature(rsv []byte, sigType SignatureType) []byte {
	out := make([]byte, signatureLen)
	out[0] = rsv[64] + 27
	copy(out[1:65], rsv[:64])
	out[65] = byte(sigType)
	return out
}

func fromZeroExSignature(sig []byte) ([]byte, error) {
	v := sig[0]
	if v != 27 && v != 28 {
		return nil, errors.New("signature v must be 27 or 28")
	}
	rsv := make([]byte, 65)
	copy(rsv[:64], sig[1:65])
	rsv[64] = v - 27
	return rsv, nil
}
