package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpHistory, 10*time.Millisecond, nil)
	c.RecordTiming(OpHistory, 30*time.Millisecond, errors.New("boom"))
	c.RecordTiming(OpReply, 5*time.Millisecond, nil)

	snap := c.Snapshot()
	require.Len(t, snap.Operations, 2)

	h := snap.Operations[0]
	assert.Equal(t, OpHistory, h.Name)
	assert.Equal(t, int64(2), h.Count)
	assert.Equal(t, int64(1), h.Errors)
	assert.Equal(t, int64(10), h.MinTimeMs)
	assert.Equal(t, int64(30), h.MaxTimeMs)
	assert.InDelta(t, 20.0, h.AvgTimeMs, 0.001)

	assert.Equal(t, OpReply, snap.Operations[1].Name)
}

func TestCountersConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc(CounterStreamEvents)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Counter(CounterStreamEvents))
	assert.Equal(t, int64(1000), c.Snapshot().Counters[CounterStreamEvents])
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.Inc(CounterStreamDrops)
	c.RecordTiming(OpReply, time.Second, nil)
	assert.Equal(t, int64(0), c.Counter(CounterStreamDrops))

	snap := c.Snapshot()
	assert.Empty(t, snap.Operations)
	assert.Empty(t, snap.Counters)
}
