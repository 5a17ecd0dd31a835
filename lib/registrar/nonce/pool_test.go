package nonce

import (
	"fmt"
	"sync"
	"testing"
	"utregister/lib/htmlutil"
	"utregister/lib/testutil"

	"github.com/stretchr/testify/require"
)

func TestTakeEmpty(t *testing.T) {
	pool := NewPool(0, 0)
	_, err := pool.Take()
	require.ErrorIs(t, err, ErrNonceExhausted)
	require.Equal(t, 0, pool.Used())
}

func TestTakeFIFO(t *testing.T) {
	pool := NewPool(1, 5)
	pool.Push("a")
	pool.Push("b")
	pool.Push("c")

	for _, expected := range []string{"a", "b", "c"} {
		n, err := pool.Take()
		require.NoError(t, err)
		require.Equal(t, expected, n)
	}
	_, err := pool.Take()
	require.ErrorIs(t, err, ErrNonceExhausted)
	require.Equal(t, 3, pool.Used())
	require.Equal(t, 3, pool.Known())
}

func TestTakeNeverRepeats(t *testing.T) {
	pool := NewPool(2, 8)
	nonces, err := testutil.RandomNonces(40)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i, n := range nonces {
		pool.Push(n)
		// interleave takes with pushes so trimming kicks in at times
		if i%3 != 0 {
			continue
		}
		taken, err := pool.Take()
		require.NoError(t, err)
		require.False(t, seen[taken], "nonce %s returned twice", taken)
		seen[taken] = true
	}
	for {
		taken, err := pool.Take()
		if err != nil {
			require.ErrorIs(t, err, ErrNonceExhausted)
			break
		}
		require.False(t, seen[taken], "nonce %s returned twice", taken)
		seen[taken] = true
	}
	require.Equal(t, len(nonces), pool.Used())
}

func TestTrimKeepsNewest(t *testing.T) {
	const maxCount = 4
	pool := NewPool(1, maxCount)
	for i := 0; i < 10; i++ {
		pool.Push(fmt.Sprintf("n%d", i))
	}
	require.Equal(t, 10, pool.Len())
	require.Equal(t, 0, pool.Missing())

	// trimming leaves exactly max entries before the head is popped
	n, err := pool.Take()
	require.NoError(t, err)
	require.Equal(t, "n6", n)
	require.Equal(t, maxCount-1, pool.Len())
	require.Equal(t, 7, pool.Used())

	var rest []string
	for pool.Len() > 0 {
		n, err := pool.Take()
		require.NoError(t, err)
		rest = append(rest, n)
	}
	require.Equal(t, []string{"n7", "n8", "n9"}, rest)
	require.Equal(t, maxCount, pool.Missing())
}

func TestHarvest(t *testing.T) {
	pool := NewPool(0, 0)

	doc, err := htmlutil.ParseBytes([]byte(`<form>
		<input type="hidden" name="s_nonce" value="first">
		<input type="hidden" name="s_nonce" value="second">
	</form>`))
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, pool.Harvest(doc))
	require.Equal(t, 1, pool.Len())

	empty, err := htmlutil.ParseBytes([]byte(`<form><input name="s_nonce"></form>`))
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, pool.Harvest(empty))
	require.False(t, pool.Harvest(nil))

	n, err := pool.Take()
	require.NoError(t, err)
	require.Equal(t, "first", n)
}

func TestConcurrentTake(t *testing.T) {
	pool := NewPool(1, 100)
	for i := 0; i < 100; i++ {
		pool.Push(fmt.Sprintf("n%d", i))
	}

	var mu sync.Mutex
	seen := map[string]bool{}
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				n, err := pool.Take()
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				if seen[n] {
					t.Errorf("nonce %s returned twice", n)
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 100)
}

func TestNewPoolCounts(t *testing.T) {
	pool := NewPool(0, 0)
	require.Equal(t, DefaultMinCount, pool.MinCount())
	require.Equal(t, DefaultMaxCount, pool.MaxCount())

	pool = NewPool(30, 5)
	require.Equal(t, 5, pool.MinCount())
	require.Equal(t, 5, pool.MaxCount())
}
