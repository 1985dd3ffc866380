package solana

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sigLen = 64

// buildTx serializes an unsigned v0 transaction with no instructions. Counts stay below 128,
// so every compact-u16 prefix is a single byte.
func buildTx(numSigs int, required byte, keys ...PublicKey) []byte {
	var msg bytes.Buffer
	msg.WriteByte(0x80)
	msg.Write([]byte{required, 0, 1})
	msg.WriteByte(byte(len(keys)))
	for _, k := range keys {
		msg.Write(k[:])
	}
	msg.Write(bytes.Repeat([]byte{7}, 32)) // recent blockhash
	msg.WriteByte(0)                        // instructions
	msg.WriteByte(0)                        // address table lookups

	var tx bytes.Buffer
	tx.WriteByte(byte(numSigs))
	tx.Write(make([]byte, numSigs*sigLen))
	tx.Write(msg.Bytes())
	return tx.Bytes()
}

func TestSignTransaction(t *testing.T) {
	w := NewWallet(bytes.Repeat([]byte{1}, 32))
	raw := buildTx(1, 1, w.PublicKey(), solanago.TokenProgramID)

	signed, txID, err := SignTransaction(raw, w)
	require.NoError(t, err)
	require.Len(t, signed, len(raw))

	sig := signed[1 : 1+sigLen]
	message := signed[1+sigLen:]
	assert.Equal(t, raw[1+sigLen:], message, "message bytes must survive re-encoding")
	pk := w.PublicKey()
	assert.True(t, ed25519.Verify(pk[:], message, sig))
	assert.Equal(t, base58.Encode(sig), txID)

	// input untouched
	assert.Equal(t, make([]byte, sigLen), raw[1:1+sigLen])
}

func TestSignTransaction_SecondSigner(t *testing.T) {
	payer := NewWallet(bytes.Repeat([]byte{2}, 32))
	w := NewWallet(bytes.Repeat([]byte{3}, 32))
	raw := buildTx(2, 2, payer.PublicKey(), w.PublicKey())

	signed, _, err := SignTransaction(raw, w)
	require.NoError(t, err)

	assert.Equal(t, make([]byte, sigLen), signed[1:1+sigLen])
	sig := signed[1+sigLen : 1+2*sigLen]
	pk := w.PublicKey()
	assert.True(t, ed25519.Verify(pk[:], signed[1+2*sigLen:], sig))
}

func TestSignTransaction_LegacyMessage(t *testing.T) {
	w := NewWallet(bytes.Repeat([]byte{5}, 32))
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{solanago.NewInstruction(
			solanago.TokenProgramID,
			solanago.AccountMetaSlice{solanago.Meta(w.PublicKey()).WRITE().SIGNER()},
			[]byte{1},
		)},
		solanago.Hash{9},
		solanago.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solanago.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	signed, txID, err := SignTransaction(raw, w)
	require.NoError(t, err)

	message, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	pk := w.PublicKey()
	assert.True(t, ed25519.Verify(pk[:], message, signed[1:1+sigLen]))
	assert.Equal(t, base58.Encode(signed[1:1+sigLen]), txID)
}

func TestSignTransaction_NotASigner(t *testing.T) {
	w := NewWallet(bytes.Repeat([]byte{1}, 32))
	raw := buildTx(1, 1, solanago.TokenProgramID, w.PublicKey())

	_, _, err := SignTransaction(raw, w)
	assert.ErrorIs(t, err, ErrSignerNotRequired)
}

func TestSignTransaction_Malformed(t *testing.T) {
	w := NewWallet(bytes.Repeat([]byte{1}, 32))

	for name, raw := range map[string][]byte{
		"empty":         {},
		"truncated":     append([]byte{0x01}, make([]byte, 10)...),
		"no signers":    buildTx(0, 0, w.PublicKey()),
		"extra slots":   buildTx(2, 1, w.PublicKey(), solanago.TokenProgramID),
	} {
		_, _, err := SignTransaction(raw, w)
		assert.ErrorIs(t, err, ErrMalformedTransaction, name)
	}
}
