package persona

import (
	"crypto/rand"
	"math/big"
)

// Rand is the randomness capability used by the generator.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	// IntN returns a uniform int in [0, n). n must be positive.
	IntN(n int) int
}

// CryptoRand draws from crypto/rand.
type CryptoRand struct{}

// IntN returns a cryptographically random int in [0, n).
func (CryptoRand) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
