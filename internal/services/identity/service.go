// Package identity turns client-held user ids into the owner keys
// recorded against seats.
package identity

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/mcoot/chessgame-go/internal/model"
)

const keySize = 20

// Service fingerprints user ids with a keyed hash so the store never
// holds the bearer value a client presents to reclaim its seat
type Service struct {
	secret []byte
}

// New creates an identity service. An empty secret still yields stable
// keys, but anyone with store access can then test guesses offline.
func New(secret string) *Service {
	s := &Service{}
	if secret != "" {
		// blake2b keys are capped at 64 bytes; hash longer secrets down
		if len(secret) > blake2b.Size {
			sum := blake2b.Sum512([]byte(secret))
			s.secret = sum[:]
		} else {
			s.secret = []byte(secret)
		}
	}
	return s
}

// OwnerKey validates id and returns its fingerprint
func (s *Service) OwnerKey(id model.UserID) (model.OwnerKey, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	h, err := blake2b.New(keySize, s.secret)
	if err != nil {
		return "", err
	}
	h.Write([]byte(id))
	return model.OwnerKey(hex.EncodeToString(h.Sum(nil))), nil
}
