package realtime

import (
	"sync"

	"github.com/mcoot/chessgame-go/internal/model"
)

// gameLocks hands out one mutex per game. Entries are reference counted
// and dropped once no goroutine holds or waits on them.
type gameLocks struct {
	mu    sync.Mutex
	locks map[model.GameID]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[model.GameID]*gameLock)}
}

// lock blocks until the caller owns game's critical section and returns
// the function that releases it
func (l *gameLocks) lock(game model.GameID) func() {
	l.mu.Lock()
	gl, ok := l.locks[game]
	if !ok {
		gl = &gameLock{}
		l.locks[game] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()
		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, game)
		}
		l.mu.Unlock()
	}
}

func (l *gameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
