package nonce

import (
	"errors"
	"log/slog"
	"sync"
	"utregister/lib/htmlutil"
)

const (
	DefaultMinCount = 10
	DefaultMaxCount = 20

	// InputName is the name of the hidden input every page carries its nonce in.
	InputName = "s_nonce"
)

var ErrNonceExhausted = errors.New("ran out of nonces")

var harvestSelector = "input[name=" + InputName + "][value]"

// Pool is a FIFO of unused single-use tokens harvested from responses.
type Pool struct {
	mu       sync.Mutex
	unused   []string
	used     int
	minCount int
	maxCount int
}

// NewPool creates an empty pool, non-positive watermarks fall back to
// their defaults. The min count never exceeds the max count.
func NewPool(minCount, maxCount int) *Pool {
	if minCount <= 0 {
		minCount = DefaultMinCount
	}
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	if minCount > maxCount {
		minCount = maxCount
	}
	return &Pool{minCount: minCount, maxCount: maxCount}
}

func (p *Pool) MinCount() int {
	return p.minCount
}

func (p *Pool) MaxCount() int {
	return p.maxCount
}

func (p *Pool) Push(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unused = append(p.unused, nonce)
}

// Harvest appends the nonce carried by doc, if there is one, and
// reports whether it found one.
func (p *Pool) Harvest(doc htmlutil.Document) bool {
	if doc == nil {
		return false
	}
	input := htmlutil.First(doc, harvestSelector)
	if input == nil {
		return false
	}
	value, _ := input.Attr("value")
	p.Push(value)
	return true
}

// Take pops the oldest usable nonce. A pool holding more than the max
// count first discards its oldest entries, which count as used even
// though they were never sent.
func (p *Pool) Take() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.unused) == 0 {
		return "", ErrNonceExhausted
	}
	if len(p.unused) < p.minCount {
		slog.Warn(
			"unused nonce count is below the defined minimum",
			"unused", len(p.unused),
			"min", p.minCount,
		)
	}
	for len(p.unused) > p.maxCount {
		p.unused = p.unused[1:]
		p.used++
	}

	nonce := p.unused[0]
	p.unused = p.unused[1:]
	p.used++
	return nonce, nil
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.unused)
}

// Used counts nonces that were sent or discarded.
func (p *Pool) Used() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Known is every nonce the pool has ever seen, unused + used.
func (p *Pool) Known() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.unused) + p.used
}

// Missing is how many nonces are needed to fill the pool up to the max count.
func (p *Pool) Missing() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	missing := p.maxCount - len(p.unused)
	if missing < 0 {
		return 0
	}
	return missing
}
