// Package session keeps each user's live flashcard and quiz sessions between
// requests. Each workspace is guarded by its own mutex; the study state machines
// themselves are not safe for concurrent use.
package session

import (
	"sync"
	"time"

	"github.com/andrewpaige1/prepass-api/study"
)

// Workspace is one user's review state.
type Workspace struct {
	Flashcards *study.FlashcardSession
	Quiz       *study.QuizSession
	// QuizRecorded is set once a completed quiz pass has been stored.
	QuizRecorded bool

	mu       sync.Mutex
	lastUsed time.Time
}

// Registry maps user IDs to workspaces.
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	now        func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		workspaces: make(map[string]*Workspace),
		now:        time.Now,
	}
}

func (r *Registry) workspace(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[userID]
	if !ok {
		ws = &Workspace{}
		r.workspaces[userID] = ws
	}
	return ws
}

// Do runs fn with the user's workspace locked.
func (r *Registry) Do(userID string, fn func(ws *Workspace) error) error {
	for {
		ws := r.workspace(userID)
		ws.mu.Lock()
		if !r.current(userID, ws) {
			// swept while we waited
			ws.mu.Unlock()
			continue
		}
		defer ws.mu.Unlock()
		ws.lastUsed = r.now()
		return fn(ws)
	}
}

func (r *Registry) current(userID string, ws *Workspace) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workspaces[userID] == ws
}

// Drop forgets the user's workspace.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, userID)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep drops workspaces idle for longer than maxIdle and returns how many went.
// A workspace in use is never dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	dropped := 0
	for id, ws := range r.workspaces {
		if !ws.mu.TryLock() {
			continue
		}
		if ws.lastUsed.Before(cutoff) {
			delete(r.workspaces, id)
			dropped++
		}
		ws.mu.Unlock()
	}
	return dropped
}
