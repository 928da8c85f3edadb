package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessgame-go/internal/model"
)

func TestOwnerKeyIsStable(t *testing.T) {
	svc := New("secret")

	a, err := svc.OwnerKey("user-1")
	require.NoError(t, err)
	b, err := svc.OwnerKey("user-1")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, string(a), keySize*2)
	assert.NotContains(t, string(a), "user-1")
}

func TestOwnerKeyDiffersByUserAndSecret(t *testing.T) {
	a, err := New("secret").OwnerKey("user-1")
	require.NoError(t, err)
	b, err := New("secret").OwnerKey("user-2")
	require.NoError(t, err)
	c, err := New("other").OwnerKey("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestOwnerKeyRejectsInvalidUser(t *testing.T) {
	svc := New("")

	_, err := svc.OwnerKey("")
	assert.ErrorIs(t, err, model.ErrInvalidUserID)

	_, err = svc.OwnerKey(model.UserID(strings.Repeat("x", model.MaxUserIDLength+1)))
	assert.ErrorIs(t, err, model.ErrInvalidUserID)
}

func TestLongSecretIsAccepted(t *testing.T) {
	svc := New(strings.Repeat("s", 200))
	key, err := svc.OwnerKey("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}
