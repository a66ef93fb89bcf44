package media

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPut(t *testing.T) {
	var f Flow
	want := &Packet{Data: []byte{0xc0, 0xff, 0xee}}

	var wg sync.WaitGroup
	var ready sync.WaitGroup

	// Hundred subscribers
	for i := 0; i < 100; i++ {
		wg.Add(1)
		ready.Add(1)
		go func() {
			defer wg.Done()
			s := f.Subscribe(1)
			ready.Done()

			p, ok := <-s
			assert.True(t, ok)
			assert.Equal(t, want, p)
		}()
	}

	ready.Wait()
	f.Put(want)
	wg.Wait()
}

func TestDropOldest(t *testing.T) {
	var f Flow
	s := f.Subscribe(2)

	for i := 1; i <= 5; i++ {
		f.Put(&Packet{Sequence: uint64(i)})
	}

	assert.EqualValues(t, 3, f.Dropped())
	assert.EqualValues(t, 4, (<-s).Sequence)
	assert.EqualValues(t, 5, (<-s).Sequence)
}

func TestUnsubscribe(t *testing.T) {
	var f Flow
	a := f.Subscribe(1)
	b := f.Subscribe(1)
	assert.Equal(t, 2, f.Subscribers())

	require.NoError(t, f.Unsubscribe(a))
	assert.Equal(t, 1, f.Subscribers())
	_, ok := <-a
	assert.False(t, ok)

	f.Put(&Packet{Sequence: 7})
	assert.EqualValues(t, 7, (<-b).Sequence)
	assert.Equal(t, errNotSubscribed, f.Unsubscribe(a))
}

func TestUnsubscribeUnknown(t *testing.T) {
	var f Flow
	ch := make(chan *Packet)
	assert.Equal(t, errNotSubscribed, f.Unsubscribe(ch))
}

func TestClose(t *testing.T) {
	var f Flow
	s := f.Subscribe(4)
	f.Put(&Packet{Sequence: 1})
	require.NoError(t, f.Close())

	p, ok := <-s
	require.True(t, ok)
	assert.EqualValues(t, 1, p.Sequence)
	_, ok = <-s
	assert.False(t, ok)
	assert.Equal(t, 0, f.Subscribers())
}
