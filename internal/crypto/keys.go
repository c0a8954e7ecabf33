package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParsePrivateKey parses a hex private key with or without the 0x prefix
// and derives the account it controls.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, common.Address{}, errors.New("private key is empty")
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to parse private key: %w", err)
	}

	return privateKey, crypto.PubkeyToAddress(privateKey.PublicKey), nil
}

// AddressFromPrivateKey derives an Ethereum address from a private key.
func AddressFromPrivateKey(privateKeyHex string) (common.Address, error) {
	_, address, err := ParsePrivateKey(privateKeyHex)
	return address, err
}
