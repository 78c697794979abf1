package codec

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	morseSampleRate = 8000
	morseBitDepth   = 16
	morseAmplitude  = 0.6 * math.MaxInt16
	// ramp length in samples, softens key clicks at each edge
	morseRamp = 40

	// MaxMorseAudio caps the length of rendered audio
	MaxMorseAudio = 5 * time.Minute
)

// ErrAudioTooLong is returned when the rendered tone would exceed MaxMorseAudio
var ErrAudioTooLong = errors.New("morse audio would exceed the maximum length")

// RenderWAV synthesises Morse code as a mono 16-bit PCM WAV tone
func RenderWAV(code string, wpm int, frequency float64) ([]byte, error) {
	if frequency <= 0 {
		frequency = DefaultMorseFrequency
	}
	signals := Schedule(code)
	if len(signals) == 0 {
		return nil, fmt.Errorf("no dots or dashes to render")
	}
	if ScheduleDuration(signals, wpm) > MaxMorseAudio {
		return nil, ErrAudioTooLong
	}

	unitSamples := int(UnitDuration(wpm).Seconds() * morseSampleRate)
	var data []int
	for _, s := range signals {
		n := s.Units * unitSamples
		if !s.On {
			data = append(data, make([]int, n)...)
			continue
		}
		for i := 0; i < n; i++ {
			env := 1.0
			if i < morseRamp {
				env = float64(i) / morseRamp
			} else if n-i < morseRamp {
				env = float64(n-i) / morseRamp
			}
			t := float64(i) / morseSampleRate
			data = append(data, int(morseAmplitude*env*math.Sin(2*math.Pi*frequency*t)))
		}
	}

	out := &memWriteSeeker{}
	enc := wav.NewEncoder(out, morseSampleRate, morseBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: morseSampleRate},
		Data:           data,
		SourceBitDepth: morseBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode audio: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalise audio: %w", err)
	}
	return out.buf, nil
}

// memWriteSeeker is the in-memory io.WriteSeeker the WAV encoder needs to patch its
// size headers after writing
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	m.pos = int(next)
	return next, nil
}
