package syncer

import (
	"time"

	"github.com/google/uuid"
)

// State describes what a sync pass is currently doing.
type State string

const (
	// StateIdle means no pass is running.
	StateIdle State = "idle"
	// StateScanning means the pass is collecting eligible items.
	StateScanning State = "scanning"
	// StateRunning means workers are uploading claimed items.
	StateRunning State = "running"
	// StateDraining means the pass stopped dispatching and is waiting for
	// in-flight uploads to settle.
	StateDraining State = "draining"
)

// Progress is an immutable snapshot of a sync pass delivered to subscribers.
type Progress struct {
	SessionID      string
	State          State
	TotalItems     int
	CompletedItems int
	Succeeded      int
	Failed         int
	Skipped        int
	CurrentItem    string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Done reports whether the pass this snapshot describes has finished.
func (p Progress) Done() bool {
	return !p.FinishedAt.IsZero()
}

// session is the mutable pass state. All fields are guarded by the
// orchestrator mutex; snapshots leave the lock as Progress values.
type session struct {
	id        string
	state     State
	total     int
	completed int
	succeeded int
	failed    int
	skipped   int
	current   string
	startedAt time.Time
	finished  time.Time
}

func newSession() *session {
	return &session{
		id:        uuid.NewString(),
		state:     StateScanning,
		startedAt: time.Now().UTC(),
	}
}

func (s *session) snapshot() Progress {
	return Progress{
		SessionID:      s.id,
		State:          s.state,
		TotalItems:     s.total,
		CompletedItems: s.completed,
		Succeeded:      s.succeeded,
		Failed:         s.failed,
		Skipped:        s.skipped,
		CurrentItem:    s.current,
		StartedAt:      s.startedAt,
		FinishedAt:     s.finished,
	}
}
