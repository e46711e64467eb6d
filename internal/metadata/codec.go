// Package metadata encodes and decodes token-metadata program records.
package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200

	instructionCreateMetadataAccountV3 uint8 = 33
	keyMetadataV1                      uint8 = 4
	creatorSize                               = 32 + 1 + 1
)

var (
	ErrFieldTooLong    = errors.New("metadata field too long")
	ErrNotMetadata     = errors.New("account is not a metadata record")
	ErrMetadataMissing = errors.New("metadata record not found")
)

// DataV2 is the on-chain description bound to a mint.
type DataV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// Validate checks the program's length limits before anything is sent.
func (d DataV2) Validate() error {
	if utf8.RuneCountInString(d.Name) == 0 || len(d.Name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d bytes", ErrFieldTooLong, MaxNameLength)
	}
	if len(d.Symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: symbol must be at most %d bytes", ErrFieldTooLong, MaxSymbolLength)
	}
	if len(d.URI) > MaxURILength {
		return fmt.Errorf("%w: uri must be at most %d bytes", ErrFieldTooLong, MaxURILength)
	}
	return nil
}

// CreateAccounts lists the accounts of CreateMetadataAccountV3 in program order.
type CreateAccounts struct {
	Metadata        solana.PublicKey
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Payer           solana.PublicKey
	UpdateAuthority solana.PublicKey
}

// NewCreateMetadataV3Instruction builds CreateMetadataAccountV3 with no
// creators, collection, uses or collection details.
func NewCreateMetadataV3Instruction(acc CreateAccounts, data DataV2, isMutable bool) (solana.Instruction, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	payload, err := encodeCreateV3(data, isMutable)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Metadata, true, false),
		solana.NewAccountMeta(acc.Mint, false, false),
		solana.NewAccountMeta(acc.MintAuthority, false, true),
		solana.NewAccountMeta(acc.Payer, true, true),
		solana.NewAccountMeta(acc.UpdateAuthority, false, acc.UpdateAuthority.Equals(acc.Payer)),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(solana.TokenMetadataProgramID, metas, payload), nil
}

func encodeCreateV3(data DataV2, isMutable bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	steps := []func() error{
		func() error { return enc.WriteUint8(instructionCreateMetadataAccountV3) },
		func() error { return writeString(enc, data.Name) },
		func() error { return writeString(enc, data.Symbol) },
		func() error { return writeString(enc, data.URI) },
		func() error { return enc.WriteUint16(data.SellerFeeBasisPoints, binary.LittleEndian) },
		func() error { return enc.WriteOption(false) }, // creators
		func() error { return enc.WriteOption(false) }, // collection
		func() error { return enc.WriteOption(false) }, // uses
		func() error { return enc.WriteBool(isMutable) },
		func() error { return enc.WriteOption(false) }, // collection details
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

// Metadata is the decoded head of a metadata account.
type Metadata struct {
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	PrimarySaleHappened  bool
	IsMutable            bool
}

// Decode parses a metadata account. Strings are stored padded with NUL bytes
// and are trimmed here.
func Decode(data []byte) (*Metadata, error) {
	dec := bin.NewBorshDecoder(data)
	key, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMetadata, err)
	}
	if key != keyMetadataV1 {
		return nil, fmt.Errorf("%w: key %d", ErrNotMetadata, key)
	}
	md := &Metadata{}
	if md.UpdateAuthority, err = readKey(dec); err != nil {
		return nil, err
	}
	if md.Mint, err = readKey(dec); err != nil {
		return nil, err
	}
	if md.Name, err = readString(dec); err != nil {
		return nil, err
	}
	if md.Symbol, err = readString(dec); err != nil {
		return nil, err
	}
	if md.URI, err = readString(dec); err != nil {
		return nil, err
	}
	if md.SellerFeeBasisPoints, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return nil, err
	}
	hasCreators, err := dec.ReadOption()
	if err != nil {
		return nil, err
	}
	if hasCreators {
		n, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		if err := dec.SkipBytes(uint(n) * creatorSize); err != nil {
			return nil, err
		}
	}
	if md.PrimarySaleHappened, err = dec.ReadBool(); err != nil {
		return nil, err
	}
	if md.IsMutable, err = dec.ReadBool(); err != nil {
		return nil, err
	}
	return md, nil
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func readString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", err
	}
	if int(n) > dec.Remaining() {
		return "", fmt.Errorf("%w: string length %d exceeds record", ErrNotMetadata, n)
	}
	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(raw), "\x00"), nil
}
