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

package channel_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shell-dot/execunit-ipc/channel"
	"github.com/shell-dot/execunit-ipc/internal/streammock"
	"github.com/shell-dot/execunit-ipc/tlv"
)

// recordingHandler captures every node the pump delivers.
type recordingHandler struct {
	mu    sync.Mutex
	nodes []*tlv.Node
	seen  chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan struct{}, 64)}
}

func (h *recordingHandler) HandleIncoming(n *tlv.Node) bool {
	h.mu.Lock()
	h.nodes = append(h.nodes, n)
	h.mu.Unlock()
	h.seen <- struct{}{}
	return true
}

func (h *recordingHandler) waitN(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.seen:
		case <-time.After(timeout):
			t.Fatalf("timed out waiting for node %d/%d", i+1, n)
		}
	}
}

func pipeDialer(local net.Conn) channel.Dialer {
	return func(_ context.Context, _ string, _ time.Duration) (channel.Stream, error) {
		return local, nil
	}
}

func writeFrameRaw(t *testing.T, w net.Conn, body []byte) {
	t.Helper()
	var lenBuf [4]byte
	lenBuf[0] = byte(len(body))
	lenBuf[1] = byte(len(body) >> 8)
	lenBuf[2] = byte(len(body) >> 16)
	lenBuf[3] = byte(len(body) >> 24)
	_, err := w.Write(lenBuf[:])
	require.NoError(t, err)
	if len(body) > 0 {
		_, err = w.Write(body)
		require.NoError(t, err)
	}
}

func TestConnectHandshake(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	handshake, err := tlv.NewLeaf(0x01, []byte("hello"))
	require.NoError(t, err)
	hsBuf, err := handshake.FullBuffer()
	require.NoError(t, err)

	go writeFrameRaw(t, server, hsBuf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	payload, err := tr.Connect(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), payload)
	require.True(t, tr.Active())

	tr.Close()
	require.False(t, tr.Active())
}

func TestConnectRejectsParentHandshake(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	parent, err := tlv.NewParent(0x01)
	require.NoError(t, err)
	buf, err := parent.FullBuffer()
	require.NoError(t, err)

	go writeFrameRaw(t, server, buf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	_, err = tr.Connect(context.Background(), time.Second)
	require.ErrorIs(t, err, channel.ErrHandshake)
	require.False(t, tr.Active())
}

func TestPumpDropsMalformedFrameAndContinues(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	handshake, _ := tlv.NewLeaf(0x01, []byte("hi"))
	hsBuf, _ := handshake.FullBuffer()
	go writeFrameRaw(t, server, hsBuf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	_, err := tr.Connect(context.Background(), time.Second)
	require.NoError(t, err)
	defer tr.Close()

	good, _ := tlv.NewLeaf(0x20, []byte("good"))
	goodBuf, _ := good.FullBuffer()

	go func() {
		// A single byte is too short to carry even a type+length header, so
		// tlv.Load rejects it; the pump must drop it and keep reading
		// instead of tearing the transport down.
		writeFrameRaw(t, server, []byte{0x20})
		writeFrameRaw(t, server, goodBuf)
	}()

	handler.waitN(t, 1, time.Second)
	require.Len(t, handler.nodes, 1)
	require.Equal(t, uint8(0x20), handler.nodes[0].Type())
	require.True(t, tr.Active())
}

func TestPumpDeliversMultipleFrames(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	handshake, _ := tlv.NewLeaf(0x01, []byte("hi"))
	hsBuf, _ := handshake.FullBuffer()
	go writeFrameRaw(t, server, hsBuf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	_, err := tr.Connect(context.Background(), time.Second)
	require.NoError(t, err)
	defer tr.Close()

	a, _ := tlv.NewLeaf(0x20, []byte("a"))
	aBuf, _ := a.FullBuffer()
	b, _ := tlv.NewLeaf(0x21, []byte("b"))
	bBuf, _ := b.FullBuffer()

	go func() {
		writeFrameRaw(t, server, aBuf)
		writeFrameRaw(t, server, bBuf)
	}()

	handler.waitN(t, 2, time.Second)
	require.Len(t, handler.nodes, 2)
	require.Equal(t, uint8(0x20), handler.nodes[0].Type())
	require.Equal(t, uint8(0x21), handler.nodes[1].Type())
}

func TestPumpExitsOnEOF(t *testing.T) {
	client, server := net.Pipe()

	handshake, _ := tlv.NewLeaf(0x01, []byte("hi"))
	hsBuf, _ := handshake.FullBuffer()
	go writeFrameRaw(t, server, hsBuf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	_, err := tr.Connect(context.Background(), time.Second)
	require.NoError(t, err)

	server.Close()

	require.Eventually(t, func() bool { return !tr.Active() }, time.Second, 5*time.Millisecond)
	tr.Close()
}

func TestPutDataFailsWhenNotActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := streammock.NewMockStream(ctrl)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", func(_ context.Context, _ string, _ time.Duration) (channel.Stream, error) {
		return stream, nil
	}, handler)

	require.False(t, tr.PutData([]byte("x")))
}

func TestPutDataMarksInactiveOnWriteError(t *testing.T) {
	client, server := net.Pipe()

	handshake, _ := tlv.NewLeaf(0x01, []byte("hi"))
	hsBuf, _ := handshake.FullBuffer()
	go writeFrameRaw(t, server, hsBuf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	_, err := tr.Connect(context.Background(), time.Second)
	require.NoError(t, err)

	// Closing the peer end makes any further write on client return
	// io.ErrClosedPipe synchronously, without the write blocking.
	server.Close()

	require.Eventually(t, func() bool {
		return !tr.PutData([]byte("x"))
	}, time.Second, 5*time.Millisecond)
	require.False(t, tr.Active())
}

func TestCloseIsIdempotentAndConcurrencySafe(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	handshake, _ := tlv.NewLeaf(0x01, []byte("hi"))
	hsBuf, _ := handshake.FullBuffer()
	go writeFrameRaw(t, server, hsBuf)

	handler := newRecordingHandler()
	tr := channel.NewTransport("test", pipeDialer(client), handler)
	_, err := tr.Connect(context.Background(), time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Close()
		}()
	}
	wg.Wait()
	require.False(t, tr.Active())
}
