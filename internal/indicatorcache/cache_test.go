package indicatorcache

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/trendlab/internal/indicators"
)

func TestGetOrCompute_ComputesOnceAndHitsAfter(t *testing.T) {
	c := New(nil)
	key := Key{Symbol: "BTC-USD", Indicator: "donchian", Params: ParamsKey(20)}

	var computed int
	compute := func() indicators.Column {
		computed++
		return indicators.Column{indicators.Null(), 1, 2}
	}

	col, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	require.Len(t, col, 3)

	again, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, computed)
	assert.True(t, indicators.IsNull(again[0]))
	assert.Equal(t, 2.0, again[2])

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetOrCompute_ConcurrentCallersShareOneComputation(t *testing.T) {
	c := New(nil)
	key := Key{Symbol: "ETH-USD", Indicator: "atr_wilder", Params: ParamsKey(14)}

	var computed int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompute(context.Background(), key, func() indicators.Column {
				atomic.AddInt64(&computed, 1)
				return indicators.Column{3.14}
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), computed)
	assert.Equal(t, 1, c.Len())
}

func TestParamsKey_DistinguishesParameterSets(t *testing.T) {
	assert.NotEqual(t, ParamsKey(10, 5), ParamsKey(10, 6))
	assert.Equal(t, "10,5", ParamsKey(10, 5))
	assert.Equal(t, "2.5", ParamsKey(2.5))
}

func TestColumnEncoding_RoundTripsNulls(t *testing.T) {
	col := indicators.Column{indicators.Null(), 1.5, indicators.Null(), -2.25}
	decoded := decodeColumn(encodeColumn(col))
	require.Len(t, decoded, 4)
	assert.True(t, math.IsNaN(decoded[0]))
	assert.Equal(t, 1.5, decoded[1])
	assert.True(t, math.IsNaN(decoded[2]))
	assert.Equal(t, -2.25, decoded[3])
}

type fakeTier struct {
	mu   sync.Mutex
	data map[string]indicators.Column
	gets int
	puts int
}

func (f *fakeTier) Get(_ context.Context, key Key) (indicators.Column, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	col, ok := f.data[key.String()]
	return col, ok, nil
}

func (f *fakeTier) Put(_ context.Context, key Key, col indicators.Column) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.data == nil {
		f.data = map[string]indicators.Column{}
	}
	f.data[key.String()] = col
	return nil
}

func TestGetOrCompute_PopulatesAndConsultsTier(t *testing.T) {
	tier := &fakeTier{}
	key := Key{Symbol: "BTC-USD", Indicator: "sma", Params: ParamsKey(50)}

	first := New(tier)
	_, err := first.GetOrCompute(context.Background(), key, func() indicators.Column {
		return indicators.Column{42}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tier.puts)

	// a second process with a cold in-memory cache finds the tier entry and
	// never recomputes.
	second := New(tier)
	col, err := second.GetOrCompute(context.Background(), key, func() indicators.Column {
		t.Fatal("compute should not run on tier hit")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42.0, col[0])
}
