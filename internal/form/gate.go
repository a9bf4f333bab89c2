package form

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrSubmissionInProgress is returned when a form is submitted again while
// its previous submission is still running.
var ErrSubmissionInProgress = errors.New("submission already in progress")

// NewID returns a fresh form instance id, rendered into a hidden field.
func NewID() string { return uuid.NewString() }

// Gate tracks which form instances have a submission in flight.
type Gate struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{inFlight: make(map[string]struct{})}
}

// SubmissionKey returns the gate key of a submission: formID when the form
// carried one, otherwise a key built from fallback, which should identify the
// caller and what is being submitted.
func SubmissionKey(formID string, fallback ...string) string {
	if formID != "" {
		return formID
	}
	return "anon:" + strings.Join(fallback, "\x00")
}

// Enter marks id as in flight. It returns ok=false when id already is; the
// caller must call release exactly once otherwise.
func (g *Gate) Enter(id string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[id]; busy {
		return nil, false
	}
	g.inFlight[id] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, id)
			g.mu.Unlock()
		})
	}, true
}
