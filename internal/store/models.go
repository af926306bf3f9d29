// Package store provides the durable SQLite collection of recordings.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Recording pairs a captured audio blob with its pipeline outputs.
type Recording struct {
	ID            string
	AudioPath     string
	Name          string
	Transcription string
	EnhancedText  string
	Tags          []string
	CreatedAt     time.Time
}

// NewRecording builds a recording for a freshly captured blob. The
// transcription, enhanced text and tags start empty and are filled in
// place by the pipeline stages.
func NewRecording(audioPath string, createdAt time.Time) Recording {
	return Recording{
		ID:        uuid.NewString(),
		AudioPath: audioPath,
		Name:      "录音 " + createdAt.Format("2006-01-02 15:04"),
		CreatedAt: createdAt,
	}
}
