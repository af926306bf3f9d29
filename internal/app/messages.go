package app

import (
	"github.com/voxnote/voxnote/internal/pipeline"
	"github.com/voxnote/voxnote/internal/store"
)

// PipelineEventMsg wraps a streamed event from the pipeline service.
type PipelineEventMsg struct {
	Event pipeline.Event
}

// RecordingsLoadedMsg carries the recording list read from the store.
type RecordingsLoadedMsg struct {
	Recordings []store.Recording
}

// ActionErrorMsg reports a failed UI-triggered action (capture toggle,
// playback, delete, rename).
type ActionErrorMsg struct {
	Err error
}

// ForwardResultMsg reports the outcome of a flomo forward.
type ForwardResultMsg struct {
	Err error
}

// CopiedMsg confirms a clipboard copy.
type CopiedMsg struct{}

// ClearNoticeMsg clears the transient notice line after a timeout.
type ClearNoticeMsg struct{}
