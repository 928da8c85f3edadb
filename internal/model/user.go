package model

// UserID is the identity a client generates and keeps across reloads.
// It is not authenticated; whoever presents it recovers its seat.
type UserID string

// MaxUserIDLength bounds client-supplied identities
const MaxUserIDLength = 128

// Validate checks that the identity can be used to claim a seat
func (u UserID) Validate() error {
	if u == "" || len(u) > MaxUserIDLength {
		return ErrInvalidUserID
	}
	return nil
}

// OwnerKey is the fingerprint of a UserID as recorded in the game store.
// Raw user ids are bearer secrets and are never persisted.
type OwnerKey string

// Short returns a log-safe prefix of the key
func (k OwnerKey) Short() string {
	if len(k) <= 8 {
		return string(k)
	}
	return string(k[:8])
}
