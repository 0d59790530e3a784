package utils

import (
	"crypto/rand"
	"math/big"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateOrderID returns an 8-character identifier drawn from
// [A-Za-z0-9]. Uniqueness is enforced at insert time: the caller retries
// on a primary-key collision.
func GenerateOrderID() string {
	return randomString(8)
}

func randomString(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; there is nothing sensible to fall back to.
			panic(err)
		}
		out[i] = idAlphabet[idx.Int64()]
	}
	return string(out)
}
