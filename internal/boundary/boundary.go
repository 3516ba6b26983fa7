// Package boundary generates unique ASCII tokens for MIME multipart
// boundaries.
//
// The source of randomness is an injected capability rather than a
// package-level global, so callers (and tests) can supply a deterministic
// source.
package boundary

import (
	"encoding/base64"
	"io"
	"math/rand"
)

// Source produces boundary tokens.
type Source interface {
	Next() string
}

// Rand wraps a *rand.Rand as a Source.
//
// '.' is not a valid base64 character, so bracketing the encoded
// random bytes with '.' guarantees the boundary can never collide with
// base64-encoded content, which is how the library encodes any
// content that isn't plain 7bit/8bit text.
type Rand struct {
	R *rand.Rand
}

func NewRand(seed int64) Rand {
	return Rand{R: rand.New(rand.NewSource(seed))}
}

func (s Rand) Next() string {
	var buf [12]byte
	if _, err := io.ReadFull(s.R, buf[:]); err != nil {
		panic(err)
	}
	return "." + base64.StdEncoding.EncodeToString(buf[:]) + "."
}
