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

package listener_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shell-dot/execunit-ipc/channel"
	"github.com/shell-dot/execunit-ipc/channel/listener"
	"github.com/shell-dot/execunit-ipc/channel/wire"
	"github.com/shell-dot/execunit-ipc/tlv"
)

func pipeDialer(local net.Conn) channel.Dialer {
	return func(_ context.Context, _ string, _ time.Duration) (channel.Stream, error) {
		return local, nil
	}
}

func writeFrame(t *testing.T, w net.Conn, body []byte) {
	t.Helper()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	_, err := w.Write(lenBuf[:])
	require.NoError(t, err)
	if len(body) > 0 {
		_, err = w.Write(body)
		require.NoError(t, err)
	}
}

func readFrame(t *testing.T, r net.Conn) []byte {
	t.Helper()
	var lenBuf [4]byte
	_, err := readFull(r, lenBuf[:])
	require.NoError(t, err)
	length := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, length)
	if length > 0 {
		_, err = readFull(r, body)
		require.NoError(t, err)
	}
	return body
}

func readFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func connectListener(t *testing.T) (*listener.Listener, net.Conn) {
	t.Helper()
	client, server := net.Pipe()

	handshake, err := tlv.NewLeaf(0x01, []byte("hi"))
	require.NoError(t, err)
	hsBuf, err := handshake.FullBuffer()
	require.NoError(t, err)
	go writeFrame(t, server, hsBuf)

	l := listener.New("test", pipeDialer(client))
	_, err = l.Connect(context.Background(), time.Second)
	require.NoError(t, err)
	return l, server
}

// buildResponse assembles a type/sequence/payload response frame the way a
// peer execution unit would answer a get_metadata/get_data_to_send request.
func buildResponse(t *testing.T, typ uint8, seq uint32, payload []byte) []byte {
	t.Helper()
	parent, err := tlv.NewParent(typ)
	require.NoError(t, err)

	seqBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(seqBytes, seq)
	seqLeaf, err := tlv.NewLeaf(wire.ChildSequence, seqBytes)
	require.NoError(t, err)
	require.NoError(t, parent.AddChild(seqLeaf))

	dataLeaf, err := tlv.NewLeaf(wire.ChildCallbackData, payload)
	require.NoError(t, err)
	require.NoError(t, parent.AddChild(dataLeaf))

	buf, err := parent.FullBuffer()
	require.NoError(t, err)
	return buf
}

func TestGetMetadataCorrelatesBySequence(t *testing.T) {
	l, server := connectListener(t)
	defer server.Close()
	defer l.Close()

	resultCh := make(chan []byte, 1)
	go func() {
		payload, ok := l.GetMetadata()
		require.True(t, ok)
		resultCh <- payload
	}()

	req := readFrame(t, server)
	node, ok := tlv.Load(req, 0)
	require.True(t, ok)
	require.Equal(t, wire.TypeGetMetadata, node.Type())
	seqChild := node.GetChild(wire.ChildSequence, 0)
	require.NotNil(t, seqChild)
	seq := binary.LittleEndian.Uint32(seqChild.AsBytes())

	writeFrame(t, server, buildResponse(t, wire.TypeGetMetadata, seq, []byte("metadata-payload")))

	select {
	case payload := <-resultCh:
		require.Equal(t, []byte("metadata-payload"), payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for GetMetadata to return")
	}
}

func TestConcurrentRequestsCorrelateByOwnSequence(t *testing.T) {
	l, server := connectListener(t)
	defer server.Close()
	defer l.Close()

	const n = 5
	results := make(chan []byte, n)
	for i := 0; i < n; i++ {
		go func() {
			payload, ok := l.GetMetadata()
			require.True(t, ok)
			results <- payload
		}()
	}

	// Read all n requests, then answer them in reverse order: correlation
	// must key strictly off the sequence child, never arrival order.
	reqs := make([]*tlv.Node, n)
	for i := 0; i < n; i++ {
		reqs[i], _ = tlv.Load(readFrame(t, server), 0)
	}
	for i := n - 1; i >= 0; i-- {
		seqChild := reqs[i].GetChild(wire.ChildSequence, 0)
		seq := binary.LittleEndian.Uint32(seqChild.AsBytes())
		writeFrame(t, server, buildResponse(t, wire.TypeGetMetadata, seq, []byte{byte(seq)}))
	}

	seen := make(map[byte]bool, n)
	for i := 0; i < n; i++ {
		select {
		case payload := <-results:
			seen[payload[0]] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for result %d/%d", i+1, n)
		}
	}
	require.Len(t, seen, n)
}

func TestWaitForResponseTimesOutAndRemovesWaker(t *testing.T) {
	l, server := connectListener(t)
	defer server.Close()
	defer l.Close()

	id, ok := sendRaw(t, l, server, wire.TypeGetMetadata)
	require.True(t, ok)

	start := time.Now()
	_, ok = l.WaitForResponse(id, 50*time.Millisecond)
	require.False(t, ok)
	require.WithinDuration(t, start.Add(50*time.Millisecond), time.Now(), 40*time.Millisecond)
	require.Empty(t, l.PendingSequenceIDs())
}

func TestCallbackDispatch(t *testing.T) {
	l, server := connectListener(t)
	defer server.Close()
	defer l.Close()

	received := make(chan []byte, 1)
	l.SetCallback(func(data []byte) { received <- data })

	cb, err := tlv.NewParent(wire.TypeCallback)
	require.NoError(t, err)
	dataLeaf, err := tlv.NewLeaf(wire.ChildCallbackData, []byte("unsolicited"))
	require.NoError(t, err)
	require.NoError(t, cb.AddChild(dataLeaf))
	buf, err := cb.FullBuffer()
	require.NoError(t, err)

	writeFrame(t, server, buf)

	select {
	case data := <-received:
		require.Equal(t, []byte("unsolicited"), data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback dispatch")
	}
}

func TestCloseReleasesBlockedWaiters(t *testing.T) {
	l, server := connectListener(t)
	defer server.Close()

	done := make(chan struct{})
	go func() {
		_, ok := l.WaitForResponse(42, 0)
		require.False(t, ok)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	l.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not release a blocked WaitForResponse")
	}
}

// sendRaw issues a get_metadata/get_data_to_send request without blocking the
// test on the reply (the listener's own goroutine blocks on it instead,
// until Close releases it), returning the sequence id the listener
// allocated so the test can drive WaitForResponse directly.
func sendRaw(t *testing.T, l *listener.Listener, server net.Conn, typ uint8) (int32, bool) {
	t.Helper()
	switch typ {
	case wire.TypeGetMetadata:
		go l.GetMetadata()
	case wire.TypeGetDataToSend:
		go l.GetDataToSend()
	}
	req := readFrame(t, server)
	node, loaded := tlv.Load(req, 0)
	require.True(t, loaded)
	seqChild := node.GetChild(wire.ChildSequence, 0)
	require.NotNil(t, seqChild)
	id := int32(binary.LittleEndian.Uint32(seqChild.AsBytes()))
	return id, true
}
