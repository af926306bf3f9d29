package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// Player plays WAV files through the default output device. At most one
// playback is active; callers stop the current one before starting the
// next.
type Player struct {
	mu     sync.Mutex
	stop   chan struct{}
	paused bool
	active bool
}

// NewPlayer returns an idle player.
func NewPlayer() *Player {
	return &Player{}
}

// Play starts playback of the WAV file at path. done is invoked exactly
// once when the file plays to its natural end; it is not invoked when
// Stop cuts playback short.
func (p *Player) Play(path string, done func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return fmt.Errorf("player already active")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open wav file: %w", err)
	}

	dec := wav.NewDecoder(file)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		file.Close()
		return fmt.Errorf("not a valid wav file: %s", path)
	}

	if err := portaudio.Initialize(); err != nil {
		file.Close()
		return fmt.Errorf("portaudio init: %w", err)
	}

	out := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(0, int(dec.NumChans), float64(dec.SampleRate), len(out), out)
	if err != nil {
		portaudio.Terminate()
		file.Close()
		return fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		file.Close()
		return fmt.Errorf("start output stream: %w", err)
	}

	p.active = true
	p.paused = false
	p.stop = make(chan struct{})
	go p.playLoop(stream, dec, file, out, done)
	return nil
}

// Pause suspends playback without releasing the device.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return fmt.Errorf("player not active")
	}
	p.paused = true
	return nil
}

// Resume continues a paused playback.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return fmt.Errorf("player not active")
	}
	p.paused = false
	return nil
}

// Stop ends playback immediately. Safe to call when idle.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return nil
	}
	p.active = false
	close(p.stop)
	return nil
}

func (p *Player) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) playLoop(stream *portaudio.Stream, dec *wav.Decoder, file *os.File, out []int16, done func()) {
	defer func() {
		stream.Stop()
		stream.Close()
		portaudio.Terminate()
		file.Close()
	}()

	format := &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)}
	buf := &audio.IntBuffer{Format: format, Data: make([]int, len(out))}

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		if p.isPaused() {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		n, err := dec.PCMBuffer(buf)
		if err != nil || n == 0 {
			break
		}
		for i := 0; i < len(out); i++ {
			if i < n {
				out[i] = int16(buf.Data[i])
			} else {
				out[i] = 0
			}
		}
		if err := stream.Write(); err != nil {
			break
		}
	}

	p.mu.Lock()
	finished := p.active
	p.active = false
	p.mu.Unlock()

	if finished && done != nil {
		done()
	}
}
