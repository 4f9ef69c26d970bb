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

// Package listener implements the Listener role of §4.3: requests carrying
// a monotonically increasing sequence number, correlated against
// asynchronously arriving responses, plus dispatch of unsolicited callback
// TLVs to a user sink.
package listener

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/shell-dot/execunit-ipc/channel"
	"github.com/shell-dot/execunit-ipc/channel/wire"
	"github.com/shell-dot/execunit-ipc/tlv"
)

// Recorder observes Listener-specific correlation events in addition to the
// base transport events. A struct backing both this and channel.Recorder
// (package metrics does) can be installed with SetRecorder.
type Recorder interface {
	channel.Recorder
	CorrelationHit()
	CorrelationMiss(reason string)
	CorrelationTimeout()
	CallbackDispatched()
}

// waker is a one-shot, idempotent wake signal. Using sync.Once to guard the
// close makes a theoretical duplicate signal for the same sequence id (the
// spec notes monotonicity avoids this "in practice", not by construction)
// harmless instead of a panic that would take down the pump goroutine.
type waker struct {
	ch   chan struct{}
	once sync.Once
}

func newWaker() *waker { return &waker{ch: make(chan struct{})} }

func (w *waker) signal() { w.once.Do(func() { close(w.ch) }) }

// Listener is the Listener role, built atop channel.Transport.
type Listener struct {
	transport *channel.Transport

	seq uint32 // next sequence number; mutated only while holding the transport's send mutex (via PutDataFunc)

	mu        sync.Mutex // response-state mutex: guards responses and wakers
	responses map[int32]*tlv.Node
	wakers    map[int32]*waker

	cbMu     sync.RWMutex
	callback func([]byte)

	rec Recorder
}

// New constructs an inert Listener; no I/O occurs until Connect.
func New(endpoint string, dial channel.Dialer) *Listener {
	l := &Listener{
		seq:       1,
		responses: make(map[int32]*tlv.Node),
		wakers:    make(map[int32]*waker),
	}
	l.transport = channel.NewTransport(endpoint, dial, l)
	return l
}

// SetRecorder installs rec on both the Listener and its underlying
// transport. Pass nil to disable recording.
func (l *Listener) SetRecorder(rec Recorder) {
	l.rec = rec
	if rec == nil {
		l.transport.SetRecorder(nil)
		return
	}
	l.transport.SetRecorder(rec)
}

// Connect dials the endpoint and returns the handshake payload; see
// channel.Transport.Connect.
func (l *Listener) Connect(ctx context.Context, timeout time.Duration) ([]byte, error) {
	return l.transport.Connect(ctx, timeout)
}

// Active reports whether the underlying transport is still usable.
func (l *Listener) Active() bool { return l.transport.Active() }

// SetCallback atomically replaces the sink invoked for unsolicited
// (type 0x20) inbound TLVs. Pass nil to stop dispatching callbacks.
func (l *Listener) SetCallback(sink func(data []byte)) {
	l.cbMu.Lock()
	l.callback = sink
	l.cbMu.Unlock()
}

// GetMetadata sends a type=0x21 request and blocks until the matching
// response arrives, returning its 0x04 payload.
func (l *Listener) GetMetadata() ([]byte, bool) {
	return l.request(wire.TypeGetMetadata)
}

// GetDataToSend sends a type=0x22 request and blocks until the matching
// response arrives, returning its 0x04 payload.
func (l *Listener) GetDataToSend() ([]byte, bool) {
	return l.request(wire.TypeGetDataToSend)
}

// NewDataFromC2 sends a type=0x23 leaf carrying data and does not wait for
// a response.
func (l *Listener) NewDataFromC2(data []byte) bool {
	ok, err := l.transport.PutDataFunc(func() ([]byte, error) {
		leaf, err := tlv.NewLeaf(wire.TypeNewDataFromC2, data)
		if err != nil {
			return nil, err
		}
		return leaf.FullBuffer()
	})
	if err != nil {
		log.Debugf("listener: new_data_from_c2: %v", err)
	}
	return ok
}

// request sends a request TLV of typ and waits indefinitely for the
// matching response, per §4.3 ("infinite" for the two documented request
// APIs).
func (l *Listener) request(typ uint8) ([]byte, bool) {
	id, ok := l.send(typ)
	if !ok {
		return nil, false
	}
	return l.WaitForResponse(id, 0)
}

// send allocates the next sequence number and transmits the request atomic
// with that allocation, so the wire order of sequence numbers is monotone
// (§4.3, §5).
func (l *Listener) send(typ uint8) (int32, bool) {
	var id int32
	ok, err := l.transport.PutDataFunc(func() ([]byte, error) {
		seq := l.seq
		l.seq++
		id = int32(seq)
		return buildRequest(typ, seq)
	})
	if err != nil {
		log.Debugf("listener: request type=0x%02x: %v", typ, err)
	}
	return id, ok
}

func buildRequest(typ uint8, seq uint32) ([]byte, error) {
	parent, err := tlv.NewParent(typ)
	if err != nil {
		return nil, err
	}
	selector, err := tlv.NewLeaf(wire.ChildCommandSelector, []byte{wire.CommandSelectorGetMetadata})
	if err != nil {
		return nil, err
	}
	if err := parent.AddChild(selector); err != nil {
		return nil, err
	}
	seqBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(seqBytes, seq)
	seqLeaf, err := tlv.NewLeaf(wire.ChildSequence, seqBytes)
	if err != nil {
		return nil, err
	}
	if err := parent.AddChild(seqLeaf); err != nil {
		return nil, err
	}
	return parent.FullBuffer()
}

// WaitForResponse blocks (up to timeout, or indefinitely if timeout<=0) for
// the response to sequence id, implementing §4.3's three-step
// register-before-wait discipline described in §9: check the map first,
// register a waker only if nothing arrived yet, and re-check the map after
// waking.
func (l *Listener) WaitForResponse(id int32, timeout time.Duration) ([]byte, bool) {
	l.mu.Lock()
	if resp, ok := l.responses[id]; ok {
		delete(l.responses, id)
		delete(l.wakers, id)
		l.mu.Unlock()
		return responsePayload(resp)
	}
	w := newWaker()
	l.wakers[id] = w
	l.mu.Unlock()

	if timeout <= 0 {
		<-w.ch
	} else {
		select {
		case <-w.ch:
		case <-time.After(timeout):
			l.mu.Lock()
			delete(l.wakers, id)
			l.mu.Unlock()
			if l.rec != nil {
				l.rec.CorrelationTimeout()
			}
			return nil, false
		}
	}

	l.mu.Lock()
	resp, ok := l.responses[id]
	if ok {
		delete(l.responses, id)
	}
	delete(l.wakers, id)
	l.mu.Unlock()
	if !ok {
		return nil, false
	}
	return responsePayload(resp)
}

func responsePayload(resp *tlv.Node) ([]byte, bool) {
	child := resp.GetChild(wire.ChildCallbackData, 0)
	if child == nil || child.IsParent() {
		return nil, false
	}
	return child.AsBytes(), true
}

// HandleIncoming implements channel.Handler. It dispatches unsolicited
// callbacks to the user sink and parks responses in the correlation table,
// waking any registered waiter.
func (l *Listener) HandleIncoming(node *tlv.Node) bool {
	switch node.Type() {
	case wire.TypeCallback:
		child := node.GetChild(wire.ChildCallbackData, 0)
		if child == nil || child.IsParent() {
			return true
		}
		l.cbMu.RLock()
		sink := l.callback
		l.cbMu.RUnlock()
		if sink != nil {
			sink(child.AsBytes())
		}
		if l.rec != nil {
			l.rec.CallbackDispatched()
		}
		return true

	case wire.TypeGetMetadata, wire.TypeGetDataToSend:
		seqChild := node.GetChild(wire.ChildSequence, 0)
		if seqChild == nil {
			if l.rec != nil {
				l.rec.CorrelationMiss("no_sequence_child")
			}
			return true
		}
		id, ok := seqChild.AsI32Ok()
		if !ok {
			if l.rec != nil {
				l.rec.CorrelationMiss("bad_sequence_length")
			}
			return true
		}

		l.mu.Lock()
		l.responses[id] = node
		w, waiting := l.wakers[id]
		l.mu.Unlock()
		if waiting {
			w.signal()
		}
		if l.rec != nil {
			l.rec.CorrelationHit()
		}
		return true

	default:
		log.Debugf("listener: rejecting unrecognized top-level type 0x%02x", node.Type())
		return false
	}
}

// PendingSequenceIDs returns the sequence ids that have a registered waiter
// still waiting for its response, for diagnostics. Responses parked with no
// waiter are not included.
func (l *Listener) PendingSequenceIDs() []int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Keys(l.wakers)
}

// Close tears down the underlying transport and releases every remaining
// waker and response, per §4.3's dispose extension. Idempotent.
func (l *Listener) Close() {
	l.transport.Close()

	l.mu.Lock()
	for _, w := range l.wakers {
		w.signal()
	}
	l.wakers = make(map[int32]*waker)
	l.responses = make(map[int32]*tlv.Node)
	l.mu.Unlock()
}
