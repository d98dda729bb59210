// Package recorder captures one audio sample per start/stop cycle and hands it
// to a callback as standard base64.
package recorder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrAlreadyRecording  = errors.New("recorder: already recording")
	ErrNotRecording      = errors.New("recorder: not recording")
	ErrSourceUnavailable = errors.New("recorder: audio source unavailable")
	ErrEmptyCapture      = errors.New("recorder: capture produced no audio")
)

// Capture is one live recording.
type Capture interface {
	io.Reader
	// Stop asks the capture to end. Read drains what is left and returns io.EOF.
	Stop() error
	// Close releases the capture once the final Read has returned.
	Close() error
}

// Source opens captures, e.g. a microphone.
type Source interface {
	Open(ctx context.Context) (Capture, error)
}

// Handler receives the base64 payload of a finished capture.
type Handler func(audio string)

type run struct {
	capture Capture
	buf     bytes.Buffer
	done    chan struct{}
	err     error
}

// Recorder runs at most one capture at a time.
type Recorder struct {
	src    Source
	onSave Handler

	mu     sync.Mutex
	active *run
}

func New(src Source, onSave Handler) *Recorder {
	return &Recorder{src: src, onSave: onSave}
}

// Start opens the source and begins buffering audio.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrAlreadyRecording
	}

	c, err := r.src.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	cur := &run{capture: c, done: make(chan struct{})}
	go func() {
		defer close(cur.done)
		_, cur.err = io.Copy(&cur.buf, c)
		if cerr := c.Close(); cur.err == nil {
			cur.err = cerr
		}
	}()
	r.active = cur
	return nil
}

// Stop ends the capture and delivers its payload to the handler exactly once.
// The payload is delivered even when the capture ended with an error; that
// error is returned afterwards. A capture that produced no bytes is not
// delivered and Stop reports ErrEmptyCapture.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.active
	if cur == nil {
		return ErrNotRecording
	}
	r.active = nil

	stopErr := cur.capture.Stop()
	<-cur.done

	if cur.buf.Len() == 0 {
		return errors.Join(ErrEmptyCapture, stopErr, cur.err)
	}
	if r.onSave != nil {
		r.onSave(base64.StdEncoding.EncodeToString(cur.buf.Bytes()))
	}
	return errors.Join(stopErr, cur.err)
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Record runs a full cycle: it starts a capture, waits until ctx is done or
// the source runs dry, stops and returns the payload.
func Record(ctx context.Context, src Source) (string, error) {
	var audio string
	rec := New(src, func(a string) { audio = a })
	if err := rec.Start(context.WithoutCancel(ctx)); err != nil {
		return "", err
	}
	cur := rec.current()
	select {
	case <-ctx.Done():
	case <-cur.done:
	}
	if err := rec.Stop(); err != nil {
		return audio, err
	}
	return audio, nil
}

func (r *Recorder) current() *run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
