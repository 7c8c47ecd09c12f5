package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Advances(t *testing.T) {
	c := NewDeterministicClock()

	assert.Equal(t, Epoch, c.Now(), "first call returns the start time")
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
	assert.Equal(t, int64(2), c.Calls())
}

func TestDeterministicClock_Reset(t *testing.T) {
	c := NewDeterministicClockAt(Epoch, time.Minute)
	c.Now()
	c.Now()
	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestDeterministicClock_Frozen(t *testing.T) {
	c := NewDeterministicClockAt(Epoch, 0)
	assert.Equal(t, c.Now(), c.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	c := NewDeterministicClockAt(Epoch, time.Millisecond)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 1000)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seen <- c.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, 1000)
}
