// Package audio provides microphone capture and WAV playback on top of
// PortAudio. Capture streams straight to a WAV encoder so stopping only
// has to finalize the header.
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// Capture format: 44.1kHz mono 16-bit PCM.
const (
	sampleRate  = 44100
	numChannels = 1
	bitDepth    = 16
	frameSize   = 1024
)

// ErrPermissionDenied means the default input device could not be
// opened, which on desktop systems is how a missing microphone grant
// presents itself.
var ErrPermissionDenied = errors.New("microphone access denied")

// Recorder captures the default input device into a WAV file.
// One capture at a time.
type Recorder struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan error
}

// NewRecorder returns an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start begins capturing into the file at path. It returns once the
// stream is running; ErrPermissionDenied when the input device is
// unavailable.
func (r *Recorder) Start(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("recorder already running")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	in := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(numChannels, 0, float64(sampleRate), len(in), in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	file, err := os.Create(path)
	if err != nil {
		stream.Stop()
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("create wav file: %w", err)
	}

	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan error, 1)
	go r.captureLoop(stream, file, in)
	return nil
}

// Stop finalizes the WAV file and releases the device. Calling Stop on
// an idle recorder is an error the caller treats as a no-op condition.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("recorder not running")
	}
	r.running = false
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	return <-done
}

func (r *Recorder) captureLoop(stream *portaudio.Stream, file *os.File, in []int16) {
	defer portaudio.Terminate()

	enc := wav.NewEncoder(file, sampleRate, bitDepth, numChannels, 1)
	format := &audio.Format{NumChannels: numChannels, SampleRate: sampleRate}
	intBuf := make([]int, len(in))

	var loopErr error
	for {
		select {
		case <-r.stop:
			goto finish
		default:
		}

		if err := stream.Read(); err != nil {
			// Overflows happen under load; keep capturing.
			continue
		}
		for i, v := range in {
			intBuf[i] = int(v)
		}
		buf := &audio.IntBuffer{Format: format, Data: intBuf, SourceBitDepth: bitDepth}
		if err := enc.Write(buf); err != nil {
			loopErr = fmt.Errorf("wav write: %w", err)
			goto finish
		}
	}

finish:
	stream.Stop()
	stream.Close()
	if err := enc.Close(); err != nil && loopErr == nil {
		loopErr = fmt.Errorf("wav close: %w", err)
	}
	if err := file.Close(); err != nil && loopErr == nil {
		loopErr = fmt.Errorf("close wav file: %w", err)
	}
	r.done <- loopErr
}
