package solana

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

// DerivationPath is the Solana wallet path m/44'/501'/0'/0', all segments hardened.
var DerivationPath = []uint32{44, 501, 0, 0}

const hardenedOffset = 0x80000000

var (
	ErrMissingMnemonic = errors.New("mnemonic not set")
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")
)

// Wallet is an ed25519 keypair able to sign transactions.
type Wallet struct {
	privateKey solanago.PrivateKey
	publicKey  PublicKey
}

// NewWallet wraps an existing 32-byte ed25519 seed.
func NewWallet(seed []byte) *Wallet {
	priv := solanago.PrivateKey(ed25519.NewKeyFromSeed(seed))
	return &Wallet{privateKey: priv, publicKey: priv.PublicKey()}
}

// WalletFromMnemonic derives the first Solana account of a BIP39 mnemonic.
func WalletFromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	if mnemonic == "" {
		return nil, ErrMissingMnemonic
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	key, _ := deriveSLIP10(seed, DerivationPath)
	return NewWallet(key), nil
}

// PublicKey returns the wallet address.
func (w *Wallet) PublicKey() PublicKey {
	return w.publicKey
}

// Sign signs message with the wallet's private key.
func (w *Wallet) Sign(message []byte) (solanago.Signature, error) {
	return w.privateKey.Sign(message)
}

// deriveSLIP10 walks a hardened-only ed25519 path and returns the child key and chain code.
func deriveSLIP10(seed []byte, path []uint32) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode = sum[:32], sum[32:]

	for _, index := range path {
		data := make([]byte, 0, 37)
		data = append(data, 0x00)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, index+hardenedOffset)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}
	return key, chainCode
}
