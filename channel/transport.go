/*
Copyright (c) the execunit-ipc authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package channel

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash"
	log "github.com/sirupsen/logrus"

	"github.com/shell-dot/execunit-ipc/tlv"
)

// pumpJoinTimeout bounds how long Close waits for the pump goroutine to
// exit (§4.2 step 5: "join the pump thread with a bounded wait (~2s); do
// not block forever").
const pumpJoinTimeout = 2 * time.Second

// Handler dispatches a parsed top-level TLV arriving on the pump. Returning
// true means "recognized" (diagnostics only, per §4.2 step 3); the pump
// ignores the return value either way. Handler must not block for long: it
// runs on the single pump goroutine.
//
// channel/listener.Listener and channel/command.Command are the two
// Handler implementations; this is the "pluggable inbound dispatcher"
// design note §9 asks for instead of inheritance between roles.
type Handler interface {
	HandleIncoming(node *tlv.Node) bool
}

// Transport is the framed transport of §4.2: length-prefixed framing over a
// Stream, one receive pump goroutine, and a send path serialized by a
// mutex. It is transport-agnostic — internal/transportdial supplies Dialers
// for Unix sockets and serial ports — and role-agnostic — it delivers
// parsed TLVs to whatever Handler the caller installs.
type Transport struct {
	endpoint string
	dial     Dialer
	handler  Handler
	rec      Recorder

	// ReadLimit bounds a single frame's declared length (see frame.go). A
	// non-positive value disables the check entirely. Defaults to 16 MiB.
	ReadLimit uint32

	sendMu sync.Mutex
	stream Stream

	active    atomic.Bool
	cancel    chan struct{}
	pumpDone  chan struct{}
	closeOnce sync.Once
}

// NewTransport constructs an inert Transport: no I/O occurs until Connect.
// handler receives every inbound TLV the pump parses.
func NewTransport(endpoint string, dial Dialer, handler Handler) *Transport {
	return &Transport{
		endpoint:  endpoint,
		dial:      dial,
		handler:   handler,
		ReadLimit: defaultReadLimit,
	}
}

// SetRecorder installs rec as the transport's metrics/diagnostics sink. Pass
// nil to disable recording (the default).
func (t *Transport) SetRecorder(rec Recorder) { t.rec = rec }

// Active reports whether the transport is currently usable. It is monotone:
// false -> true -> false over the instance's lifetime.
func (t *Transport) Active() bool { return t.active.Load() }

// Connect dials the endpoint, reads the handshake frame, starts the pump,
// and returns the handshake TLV's leaf payload. On any failure — dial
// timeout, I/O error, or a handshake frame that doesn't parse as a leaf —
// the instance is left fully torn down and ErrHandshake (or the underlying
// error) is returned.
func (t *Transport) Connect(ctx context.Context, timeout time.Duration) ([]byte, error) {
	stream, err := t.dial(ctx, t.endpoint, timeout)
	if err != nil {
		return nil, err
	}
	t.stream = stream
	t.active.Store(true)

	body, err := readFrame(stream, t.ReadLimit)
	if err != nil {
		log.Errorf("channel: reading handshake frame from %s: %v", t.endpoint, err)
		t.teardown()
		return nil, err
	}
	node, ok := tlv.Load(body, 0)
	if !ok || node.IsParent() {
		t.teardown()
		return nil, ErrHandshake
	}

	t.cancel = make(chan struct{})
	t.pumpDone = make(chan struct{})
	go t.pump()

	log.Debugf("channel: connected to %s, handshake payload %d bytes (digest %x)", t.endpoint, len(node.AsBytes()), xxhash.Sum64(body))
	return node.AsBytes(), nil
}

// PutData writes payload as one frame under the send mutex. It returns
// false without attempting I/O once the transport is inactive, and on any
// write error flips the transport inactive before returning false. Callers
// never observe a partial frame.
func (t *Transport) PutData(payload []byte) bool {
	ok, _ := t.PutDataFunc(func() ([]byte, error) { return payload, nil })
	return ok
}

// PutDataFunc runs build under the send mutex and, if it succeeds, writes
// the resulting frame — still under the same mutex. channel/listener uses
// this to allocate a request's sequence number atomically with its place in
// the wire order (§4.3: "sequence number allocation happens under the send
// mutex, bundled with the transmission").
func (t *Transport) PutDataFunc(build func() ([]byte, error)) (bool, error) {
	if !t.active.Load() {
		return false, ErrNotActive
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if !t.active.Load() {
		return false, ErrNotActive
	}

	payload, err := build()
	if err != nil {
		return false, err
	}

	if err := writeFrame(t.stream, payload); err != nil {
		log.Errorf("channel: write to %s failed, marking inactive: %v", t.endpoint, err)
		t.active.Store(false)
		return false, err
	}
	t.recordSent(len(payload))
	return true, nil
}

// pump is the single background goroutine that reads frames, parses them
// as TLVs, and dispatches to the handler. It is the only reader of the
// stream for the life of the instance (§5: "at-most-one pump").
func (t *Transport) pump() {
	defer close(t.pumpDone)
	for {
		select {
		case <-t.cancel:
			return
		default:
		}

		body, err := readFrame(t.stream, t.ReadLimit)
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				log.Warnf("channel: pump read from %s failed: %v", t.endpoint, err)
			} else {
				log.Debugf("channel: pump read from %s reached EOF", t.endpoint)
			}
			t.active.Store(false)
			t.recordPumpExit(err)
			return
		}
		t.recordReceived(len(body))

		node, ok := tlv.Load(body, 0)
		if !ok {
			log.Warnf("channel: dropping malformed TLV frame (%d bytes) from %s", len(body), t.endpoint)
			t.recordDropped("parse_error")
			continue
		}

		t.handler.HandleIncoming(node)
	}
}

// Close tears the transport down. It is idempotent and safe to call from
// any goroutine any number of times.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		if !t.active.Swap(false) {
			// Connect never succeeded, a prior teardown already ran, or the
			// pump or a failed write already marked the transport inactive;
			// in those last two cases the stream is not closed here.
			return
		}
		t.shutdown()
	})
}

// teardown is used by Connect on a failed handshake, before the pump has
// ever started.
func (t *Transport) teardown() {
	t.active.Store(false)
	if t.stream != nil {
		_ = t.stream.Close()
	}
}

// shutdown implements §4.2 step 2-6: signal cancellation, best-effort drain
// the write side, close the stream, join the pump with a bounded wait.
func (t *Transport) shutdown() {
	if t.cancel != nil {
		close(t.cancel)
	}

	if cw, ok := t.stream.(streamCloseWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			log.Debugf("channel: CloseWrite on %s: %v", t.endpoint, err)
		}
	}

	if err := t.stream.Close(); err != nil {
		log.Debugf("channel: closing stream for %s: %v", t.endpoint, err)
	}

	if t.pumpDone != nil {
		select {
		case <-t.pumpDone:
		case <-time.After(pumpJoinTimeout):
			log.Warnf("channel: pump for %s did not exit within %s", t.endpoint, pumpJoinTimeout)
		}
	}
}
