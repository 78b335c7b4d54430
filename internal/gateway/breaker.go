package gateway

import (
	"sort"
	"sync"
	"time"
)

// State is the logical state of a circuit.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// DefaultCooldown is how long an open circuit stays open before a probe.
const DefaultCooldown = 300 * time.Second

type circuit struct {
	open        bool
	lastFailure time.Time
	failures    int
	probing     bool
}

// Breaker tracks upstream health per upstream base URL. State lives only in
// memory and starts closed.
type Breaker struct {
	mu        sync.Mutex
	cooldown  time.Duration
	threshold int
	now       func() time.Time
	circuits  map[string]*circuit
}

// NewBreaker returns a breaker that opens after threshold consecutive
// failures and allows one probe once cooldown has elapsed.
func NewBreaker(cooldown time.Duration, threshold int, now func() time.Time) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if threshold < 1 {
		threshold = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		cooldown:  cooldown,
		threshold: threshold,
		now:       now,
		circuits:  make(map[string]*circuit),
	}
}

func (b *Breaker) get(upstream string) *circuit {
	c, ok := b.circuits[upstream]
	if !ok {
		c = &circuit{}
		b.circuits[upstream] = c
	}
	return c
}

// Allow reports whether a request may be forwarded to upstream. When the
// circuit is half-open exactly one caller gets probe=true; everyone else is
// refused until that probe reports back through Success or Failure.
func (b *Breaker) Allow(upstream string) (allowed, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(upstream)
	if !c.open {
		return true, false
	}
	if b.now().Sub(c.lastFailure) < b.cooldown || c.probing {
		return false, false
	}
	c.probing = true
	return true, true
}

// Success closes the circuit and resets its failure count.
func (b *Breaker) Success(upstream string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(upstream)
	c.open = false
	c.failures = 0
	c.probing = false
}

// Failure records a failed forward and (re)opens the circuit once the
// threshold is reached. A failed probe restarts the cooldown.
func (b *Breaker) Failure(upstream string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(upstream)
	c.failures++
	c.lastFailure = b.now()
	c.probing = false
	if c.failures >= b.threshold {
		c.open = true
	}
}

// State returns the current logical state of upstream's circuit.
func (b *Breaker) State(upstream string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(b.get(upstream))
}

func (b *Breaker) stateLocked(c *circuit) State {
	switch {
	case !c.open:
		return StateClosed
	case b.now().Sub(c.lastFailure) >= b.cooldown:
		return StateHalfOpen
	default:
		return StateOpen
	}
}

// CircuitStatus is a point-in-time view of one circuit.
type CircuitStatus struct {
	Upstream    string    `json:"upstream"`
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// Snapshot lists every circuit seen so far, sorted by upstream.
func (b *Breaker) Snapshot() []CircuitStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]CircuitStatus, 0, len(b.circuits))
	for upstream, c := range b.circuits {
		out = append(out, CircuitStatus{
			Upstream:    upstream,
			State:       b.stateLocked(c),
			Failures:    c.failures,
			LastFailure: c.lastFailure,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Upstream < out[j].Upstream })
	return out
}
