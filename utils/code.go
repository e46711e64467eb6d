package utils

import (
	"encoding/base64"
	"errors"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrEmptyTx = errors.New("empty transaction payload")

// DecodeBase64Tx 解码前端钱包签名后的交易
func DecodeBase64Tx(b64 string) (*solana.Transaction, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, ErrEmptyTx
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return solana.TransactionFromDecoder(bin.NewBinDecoder(data))
}

// EncodeBase64Tx 序列化交易，交给前端钱包签名
func EncodeBase64Tx(tx *solana.Transaction) (string, error) {
	if tx == nil {
		return "", ErrEmptyTx
	}
	enc, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// MaskShort shortens an address or signature for logs: abcd***wxyz.
func MaskShort(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}

// TruncateAddress is the display form used when a token has no readable name.
func TruncateAddress(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 8 {
		return t
	}
	return t[:4] + "..." + t[len(t)-4:]
}
