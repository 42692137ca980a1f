package chat

import (
	"context"
	"fmt"
	"sync"
)

// AudioStream is an open microphone capture
type AudioStream interface {
	// Stop ends the capture, releases the device and returns the encoded WAV
	Stop() ([]byte, error)
}

// Microphone opens capture streams
type Microphone interface {
	Open(ctx context.Context) (AudioStream, error)
}

// RecorderState is where a Recorder is in its cycle
type RecorderState int

const (
	// RecorderIdle has no capture running
	RecorderIdle RecorderState = iota
	// RecorderRecording is capturing
	RecorderRecording
)

func (s RecorderState) String() string {
	if s == RecorderRecording {
		return "recording"
	}
	return "idle"
}

// Recorder captures one voice clip at a time
type Recorder struct {
	mic Microphone

	mu     sync.Mutex
	stream AudioStream
	clip   *VoiceClip
}

// NewRecorder returns an idle recorder over mic
func NewRecorder(mic Microphone) *Recorder {
	return &Recorder{mic: mic}
}

// State reports whether a capture is running
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return RecorderRecording
	}
	return RecorderIdle
}

// Start opens the microphone. On failure the recorder stays idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return ErrAlreadyRecording
	}
	if r.mic == nil {
		return ErrMicrophoneUnavailable
	}
	stream, err := r.mic.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	r.stream = stream
	r.clip = nil
	return nil
}

// Stop ends the capture and returns the clip. The device is released even
// when encoding fails.
func (r *Recorder) Stop() (*VoiceClip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return nil, ErrNotRecording
	}
	data, err := r.stream.Stop()
	r.stream = nil
	if err != nil {
		return nil, fmt.Errorf("stop recording: %w", err)
	}
	r.clip = &VoiceClip{Data: data}
	return r.clip, nil
}

// Clip is the last finished recording, nil if none
func (r *Recorder) Clip() *VoiceClip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}
