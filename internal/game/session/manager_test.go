package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

func TestBridgeEntity_Push(t *testing.T) {
	e := NewBridgeEntity("test", 4)
	require.NoError(t, e.Push("hello"))
	assert.Equal(t, "hello", <-e.Events())
	assert.Equal(t, "test", e.Name())
}

func TestBridgeEntity_PushClosed(t *testing.T) {
	e := NewBridgeEntity("test", 4)
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
	assert.ErrorIs(t, e.Push("fail"), ErrClosed)
	assert.Empty(t, e.Drain())
}

func TestBridgeEntity_PushFull(t *testing.T) {
	e := NewBridgeEntity("test", 1)
	require.NoError(t, e.Push("first"))
	err := e.Push("overflow")
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1, e.Dropped())
	assert.Equal(t, []string{"first"}, e.Drain())
	require.NoError(t, e.Push("after drain"))
}

func TestBridgeEntity_DrainKeepsOrder(t *testing.T) {
	e := NewBridgeEntity("test", 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Push(fmt.Sprint(i)))
	}
	assert.Equal(t, []string{"0", "1", "2"}, e.Drain())
	assert.Nil(t, e.Drain())
}

func TestBridgeEntity_CloseIdempotent(t *testing.T) {
	e := NewBridgeEntity("test", 4)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
}

func TestManager_AttachDeliverDetach(t *testing.T) {
	m := NewManager()
	h := entity.Handle{Index: 1, Gen: 1}
	b := NewBridgeEntity("Alice", 4)
	require.NoError(t, m.Attach(h, b))
	assert.Error(t, m.Attach(h, NewBridgeEntity("dup", 1)))
	require.NoError(t, m.Deliver(h, "You prepare to block."))
	assert.Equal(t, "You prepare to block.", <-b.Events())

	m.Detach(h)
	assert.False(t, m.Has(h))
	assert.True(t, b.IsClosed())
	assert.NoError(t, m.Deliver(h, "dropped"), "entities without a session are skipped")
}

func TestManager_Property_ConcurrentAttachDetach(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "n")
		m := NewManager()
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h := entity.Handle{Index: uint32(i), Gen: 1}
				_ = m.Attach(h, NewBridgeEntity(fmt.Sprintf("e%d", i), 2))
				_ = m.Deliver(h, "hi")
			}(i)
		}
		wg.Wait()
		assert.Equal(rt, n, m.Count())
	})
}
