package deploy

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrReverted       = errors.New("transaction reverted")
	ErrInvalidAddress = errors.New("invalid address")
	ErrZeroAddress    = errors.New("zero address")
)

// CheckReceipt returns ErrReverted, naming what the transaction was for,
// when the receipt carries a failed status.
func CheckReceipt(what string, receipt *types.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%s: missing receipt", what)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: %w: %s", what, ErrReverted, receipt.TxHash.Hex())
	}
	return nil
}

func ParsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func ParseAddress(v string) (common.Address, error) {
	v = strings.TrimSpace(v)
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, v)
	}
	return common.HexToAddress(v), nil
}

// RequireAddress rejects the zero address. field names the argument in
// the returned error.
func RequireAddress(field string, addr common.Address) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%s: %w", field, ErrZeroAddress)
	}
	return nil
}
