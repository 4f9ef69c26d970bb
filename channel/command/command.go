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

// Package command implements the Command role of §4.4: fire-and-forget
// outbound result/error/config messages, and dispatch of the two inbound
// push kinds ("new data", "stop") to user-supplied sinks.
package command

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shell-dot/execunit-ipc/channel"
	"github.com/shell-dot/execunit-ipc/channel/wire"
	"github.com/shell-dot/execunit-ipc/tlv"
)

// Command is the Command role, built atop channel.Transport.
type Command struct {
	transport *channel.Transport

	sinkMu      sync.RWMutex
	newDataSink func(data []byte)
	stopSink    func()
}

// New constructs an inert Command; no I/O occurs until Connect.
func New(endpoint string, dial channel.Dialer) *Command {
	c := &Command{}
	c.transport = channel.NewTransport(endpoint, dial, c)
	return c
}

// SetRecorder installs rec on the underlying transport. Pass nil to disable
// recording.
func (c *Command) SetRecorder(rec channel.Recorder) { c.transport.SetRecorder(rec) }

// Connect dials the endpoint and returns the handshake payload; see
// channel.Transport.Connect.
func (c *Command) Connect(ctx context.Context, timeout time.Duration) ([]byte, error) {
	return c.transport.Connect(ctx, timeout)
}

// Active reports whether the underlying transport is still usable.
func (c *Command) Active() bool { return c.transport.Active() }

// Close tears down the underlying transport. Idempotent.
func (c *Command) Close() { c.transport.Close() }

// SetNewDataSink installs the sink invoked for inbound type=0x39 messages.
// Pass nil to stop dispatching.
func (c *Command) SetNewDataSink(sink func(data []byte)) {
	c.sinkMu.Lock()
	c.newDataSink = sink
	c.sinkMu.Unlock()
}

// SetStopSink installs the sink invoked for inbound type=0x3F messages.
// Pass nil to stop dispatching.
func (c *Command) SetStopSink(sink func()) {
	c.sinkMu.Lock()
	c.stopSink = sink
	c.sinkMu.Unlock()
}

func (c *Command) sendLeaf(typ uint8, data []byte) bool {
	ok, err := c.transport.PutDataFunc(func() ([]byte, error) {
		leaf, err := tlv.NewLeaf(typ, data)
		if err != nil {
			return nil, err
		}
		return leaf.FullBuffer()
	})
	if err != nil {
		log.Debugf("command: send type=0x%02x: %v", typ, err)
	}
	return ok
}

// SendResult sends a type=0x30 leaf carrying data.
func (c *Command) SendResult(data []byte) bool { return c.sendLeaf(wire.TypeResult, data) }

// SendError sends a type=0x32 leaf carrying data.
func (c *Command) SendError(data []byte) bool { return c.sendLeaf(wire.TypeError, data) }

// SendReturnSuccess sends an empty type=0x33 leaf.
func (c *Command) SendReturnSuccess() bool { return c.sendLeaf(wire.TypeReturnSuccess, []byte{}) }

// SendReturnFailed sends an empty type=0x34 leaf.
func (c *Command) SendReturnFailed() bool { return c.sendLeaf(wire.TypeReturnFailed, []byte{}) }

// SendConfOngoingResult sends a type=0x31 parent with a single child
// (type=0x01, a single byte 0x01) marking the operation as still ongoing.
func (c *Command) SendConfOngoingResult() bool {
	ok, err := c.transport.PutDataFunc(func() ([]byte, error) {
		parent, err := tlv.NewParent(wire.TypeConf)
		if err != nil {
			return nil, err
		}
		child, err := tlv.NewLeaf(wire.ChildConfOngoing, []byte{0x01})
		if err != nil {
			return nil, err
		}
		if err := parent.AddChild(child); err != nil {
			return nil, err
		}
		return parent.FullBuffer()
	})
	if err != nil {
		log.Debugf("command: send_conf_ongoing_result: %v", err)
	}
	return ok
}

// SendConfStopWait sends a type=0x31 parent with a single child
// (type=0x03, ms as a 4-byte little-endian integer).
func (c *Command) SendConfStopWait(ms int32) bool {
	ok, err := c.transport.PutDataFunc(func() ([]byte, error) {
		parent, err := tlv.NewParent(wire.TypeConf)
		if err != nil {
			return nil, err
		}
		msBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(msBytes, uint32(ms))
		child, err := tlv.NewLeaf(wire.ChildConfStopWait, msBytes)
		if err != nil {
			return nil, err
		}
		if err := parent.AddChild(child); err != nil {
			return nil, err
		}
		return parent.FullBuffer()
	})
	if err != nil {
		log.Debugf("command: send_conf_stop_wait: %v", err)
	}
	return ok
}

// HandleIncoming implements channel.Handler.
func (c *Command) HandleIncoming(node *tlv.Node) bool {
	switch node.Type() {
	case wire.TypeStop:
		c.sinkMu.RLock()
		sink := c.stopSink
		c.sinkMu.RUnlock()
		if sink != nil {
			sink()
		}
		return true

	case wire.TypeNewData:
		if node.IsParent() {
			log.Warnf("command: dropping type=0x39 new-data frame encoded as a parent")
			return true
		}
		c.sinkMu.RLock()
		sink := c.newDataSink
		c.sinkMu.RUnlock()
		if sink != nil {
			sink(node.AsBytes())
		}
		return true

	default:
		log.Debugf("command: rejecting unrecognized top-level type 0x%02x", node.Type())
		return false
	}
}
