package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatOpponent(t *testing.T) {
	assert.Equal(t, SeatBlack, SeatWhite.Opponent())
	assert.Equal(t, SeatWhite, SeatBlack.Opponent())
}

func TestOutcomeIsTerminal(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		terminal bool
		valid    bool
	}{
		{OutcomeNone, false, true},
		{OutcomeCheckmate, true, true},
		{OutcomeDraw, true, true},
		{Outcome("stalemate"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.outcome.IsTerminal())
			assert.Equal(t, tt.valid, tt.outcome.Valid())
		})
	}
}

func TestAssignSeatOrderAndStickiness(t *testing.T) {
	g := &Game{ID: "G1", State: InitialGameState()}

	seat, claimed, err := g.AssignSeat("alice")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, SeatWhite, seat)

	seat, claimed, err = g.AssignSeat("bob")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, SeatBlack, seat)

	// Same identity recovers its own seat
	seat, claimed, err = g.AssignSeat("alice")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, SeatWhite, seat)

	_, _, err = g.AssignSeat("carol")
	assert.ErrorIs(t, err, ErrGameFull)
	assert.Equal(t, OwnerKey("alice"), g.White)
	assert.Equal(t, OwnerKey("bob"), g.Black)
}

func TestSeatOfIgnoresEmptyOwner(t *testing.T) {
	g := &Game{}
	_, ok := g.SeatOf("")
	assert.False(t, ok)
}

func TestUserIDValidate(t *testing.T) {
	assert.NoError(t, UserID("u-1").Validate())
	assert.ErrorIs(t, UserID("").Validate(), ErrInvalidUserID)

	long := make([]byte, MaxUserIDLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, UserID(long).Validate(), ErrInvalidUserID)
}

func TestParseSeat(t *testing.T) {
	seat, err := ParseSeat("black")
	require.NoError(t, err)
	assert.Equal(t, SeatBlack, seat)

	_, err = ParseSeat("red")
	assert.Error(t, err)
	_, err = ParseSeat("")
	assert.Error(t, err)
}
