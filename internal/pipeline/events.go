package pipeline

// Stage names a pipeline step for stage-scoped errors.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageEnhancement   Stage = "enhancement"
)

// EventType discriminates pipeline events.
type EventType string

const (
	// EventState signals that one of the boolean state flags changed;
	// subscribers re-read the snapshot.
	EventState EventType = "state"
	// EventDuration ticks once per second while capturing.
	EventDuration EventType = "duration"
	// EventRecordingSaved fires when a fresh capture lands in the store.
	EventRecordingSaved EventType = "recording_saved"
	// EventTranscription fires when the transcription stage succeeds.
	EventTranscription EventType = "transcription"
	// EventEnhancement fires when the enhancement stage succeeds.
	EventEnhancement EventType = "enhancement"
	// EventPlaybackDone fires when playback reaches the end of the file.
	EventPlaybackDone EventType = "playback_done"
	// EventError carries a stage-scoped failure.
	EventError EventType = "error"
)

// Event is streamed to subscribers on every observable transition.
type Event struct {
	Type        EventType
	RecordingID string
	Text        string
	Tags        []string
	Seconds     int
	Duration    string
	Stage       Stage
	Message     string
	// Discarded marks a stage result whose store write-back was dropped
	// because the recording had been deleted mid-flight.
	Discarded bool
}
