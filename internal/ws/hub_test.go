package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	writes   [][]byte
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.writes = append(f.writes, buf)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub(nil)
	a := &fakeConn{}
	b := &fakeConn{}

	h.Register(a)
	h.Register(a) // idempotent
	h.Register(b)
	assert.Equal(t, 2, h.Count())

	h.Unregister(a)
	assert.Equal(t, 1, h.Count())

	h.Unregister(a) // unknown conn is a no-op
	assert.Equal(t, 1, h.Count())
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(nil)
	a := &fakeConn{}
	b := &fakeConn{}
	h.Register(a)
	h.Register(b)

	h.Broadcast(map[string]any{"type": "ITEM_UPDATE", "item_id": 3})

	require.Len(t, a.writes, 1)
	require.Len(t, b.writes, 1)
	// Serialized once: both observers receive identical bytes.
	assert.Equal(t, a.writes[0], b.writes[0])
	assert.JSONEq(t, `{"type":"ITEM_UPDATE","item_id":3}`, string(a.writes[0]))
}

func TestHubBroadcastPrunesDeadConns(t *testing.T) {
	h := NewHub(nil)
	healthy := &fakeConn{}
	dead := &fakeConn{writeErr: errors.New("broken pipe")}
	h.Register(healthy)
	h.Register(dead)

	h.Broadcast(map[string]string{"type": "ROUND_STARTED"})

	assert.Equal(t, 1, h.Count())
	assert.True(t, dead.closed)
	assert.False(t, healthy.closed)
	require.Len(t, healthy.writes, 1)

	// The dead connection stays gone on the next broadcast.
	h.Broadcast(map[string]string{"type": "ROUND_OVER"})
	assert.Equal(t, 1, h.Count())
	assert.Len(t, healthy.writes, 2)
}

func TestHubBroadcastUnmarshalable(t *testing.T) {
	h := NewHub(nil)
	c := &fakeConn{}
	h.Register(c)

	h.Broadcast(make(chan int))

	assert.Empty(t, c.writes)
	assert.Equal(t, 1, h.Count())
}
