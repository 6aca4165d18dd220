package shortcode

import (
	"crypto/rand"
	"math/big"
)

// Alphabet holds 26 lowercase letters, 26 uppercase letters and 10 digits.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const DefaultLength = 6

// Generator generates random short codes.
type Generator struct {
	alphabet string
	length   int
}

// NewGenerator returns a generator of 6-character alphanumeric codes.
func NewGenerator() *Generator {
	return NewGeneratorWith(Alphabet, DefaultLength)
}

// NewGeneratorWith returns a generator over a custom alphabet and length.
func NewGeneratorWith(alphabet string, length int) *Generator {
	return &Generator{
		alphabet: alphabet,
		length:   length,
	}
}

// Generate draws every character uniformly and independently from the alphabet.
func (g *Generator) Generate() string {
	b := make([]byte, g.length)
	alphabetLen := big.NewInt(int64(len(g.alphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = g.alphabet[n.Int64()]
	}

	return string(b)
}
