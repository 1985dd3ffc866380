package solana

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

var (
	ErrMalformedTransaction = errors.New("malformed transaction")
	ErrSignerNotRequired    = errors.New("wallet is not a required signer of the transaction")
)

// SignTransaction adds the wallet's signature to a serialized (legacy or versioned)
// transaction as produced by a swap API, and returns the signed bytes together with the
// transaction id (the fee payer's signature, base58). Other signature slots are kept.
func SignTransaction(raw []byte, w *Wallet) ([]byte, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty", ErrMalformedTransaction)
	}
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || required > len(tx.Message.AccountKeys) {
		return nil, "", fmt.Errorf("%w: %d required signers, %d account keys",
			ErrMalformedTransaction, required, len(tx.Message.AccountKeys))
	}
	if len(tx.Signatures) > required {
		return nil, "", fmt.Errorf("%w: %d signature slots for %d signers", ErrMalformedTransaction, len(tx.Signatures), required)
	}

	index := -1
	for i, key := range tx.Message.AccountKeys[:required] {
		if key.Equals(w.PublicKey()) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, "", ErrSignerNotRequired
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, "", fmt.Errorf("%w: encode message: %v", ErrMalformedTransaction, err)
	}
	sig, err := w.Sign(message)
	if err != nil {
		return nil, "", err
	}

	if len(tx.Signatures) < required {
		sigs := make([]solanago.Signature, required)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}
	tx.Signatures[index] = sig

	signed, err := tx.MarshalBinary()
	if err != nil {
		return nil, "", fmt.Errorf("encode signed transaction: %w", err)
	}
	return signed, tx.Signatures[0].String(), nil
}
