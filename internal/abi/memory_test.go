//go:build wasip1

package abi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateDeallocate(t *testing.T) {
	FreeAllTracked()

	ptr := allocate(64)
	require.NotZero(t, ptr)
	count, size := Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, 64, size)

	deallocate(ptr, 64)
	deallocate(ptr, 64)
	count, size = Stats()
	assert.Zero(t, count)
	assert.Zero(t, size)

	assert.Zero(t, allocate(0))
}

func TestPtrFromBytes_RoundTrip(t *testing.T) {
	FreeAllTracked()

	packed := PtrFromBytes([]byte("frame"))
	assert.Equal(t, []byte("frame"), BytesFromPtr(packed))

	DeallocatePacked(packed)
	count, _ := Stats()
	assert.Zero(t, count)

	assert.Zero(t, PtrFromBytes(nil))
	assert.Nil(t, BytesFromPtr(0))
	DeallocatePacked(0)
}

func TestConfigure(t *testing.T) {
	FreeAllTracked()
	t.Cleanup(func() { _ = Configure(DefaultMaxTotalAllocations) })

	assert.Error(t, Configure(0))
	require.NoError(t, Configure(16))
	assert.Panics(t, func() { allocate(17) })
}

func TestConcurrentAllocations(t *testing.T) {
	FreeAllTracked()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			DeallocatePacked(PtrFromBytes([]byte("x")))
		}()
	}
	wg.Wait()

	count, size := Stats()
	assert.Zero(t, count)
	assert.Zero(t, size)
}
