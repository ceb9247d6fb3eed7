package laundry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Parallel()
	k := newKeyedMutex()
	counters := map[string]int{"a": 0, "b": 0}
	var mu sync.Mutex // карта общая для обоих ключей

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		key := "a"
		if i%2 == 1 {
			key = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			mu.Lock()
			v := counters[key]
			mu.Unlock()
			mu.Lock()
			counters[key] = v + 1
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counters["a"])
	require.Equal(t, 50, counters["b"])
	require.Empty(t, k.locks)
}
