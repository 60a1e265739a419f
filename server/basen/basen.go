package basen

import (
	"math/big"

	"github.com/juju/errors"
)

const (
	AlphabetBase62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Encoder is a generic base-N encoder.
type Encoder struct {
	alphabet string
}

// NewEncoder creates a new Encoder using the provided alphabet.
func NewEncoder(alphabet string) *Encoder {
	return &Encoder{alphabet}
}

// Encode encodes binary data into a base-N string. The least significant
// digit comes first.
func (e *Encoder) Encode(data []byte) string {
	var (
		value big.Int
		zero  big.Int
		base  big.Int
	)

	value.SetBytes(data)

	baseInt64 := int64(len(e.alphabet))

	result := []byte{}

	for value.Cmp(&zero) != 0 {
		base.SetInt64(baseInt64)
		_, remainder := value.DivMod(&value, &base, &base)
		result = append(result, e.alphabet[remainder.Int64()])
	}

	return string(result)
}

// Decoder is a generic base-N decoder.
type Decoder struct {
	alphabet    string
	runeToValue map[rune]int
}

// NewDecoder creates a new Decoder using the provided alphabet.
func NewDecoder(alphabet string) *Decoder {
	runeToValue := make(map[rune]int, len(alphabet))

	for i, r := range alphabet {
		runeToValue[r] = i
	}

	return &Decoder{
		alphabet:    alphabet,
		runeToValue: runeToValue,
	}
}

// Decode decodes a base-N string produced by Encoder back into bytes.
func (d *Decoder) Decode(data string) ([]byte, error) {
	var (
		n            big.Int
		factor       big.Int
		currentValue big.Int
		value        big.Int
		zero         big.Int
	)

	n.SetInt64(int64(len(d.alphabet)))

	for i, r := range data {
		val, ok := d.runeToValue[r]
		if !ok {
			return nil, errors.Errorf("character %s not found in alphabet: %s", string(r), d.alphabet)
		}

		runeValue := int64(val)
		factor.SetInt64(int64(i)).Exp(&n, &factor, &zero)
		currentValue.SetInt64(runeValue).Mul(&currentValue, &factor)
		value.Add(&value, &currentValue)
	}

	return value.Bytes(), nil
}
