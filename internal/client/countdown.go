package client

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is the cosmetic per-question timer a player sees. The server's
// timer is the one that counts; this one only renders and can be cut short
// when the server says the question is over.
type Countdown struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	deadline time.Time
	running  bool
}

func NewCountdown(clock clockwork.Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock}
}

func (c *Countdown) Start(total time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = c.clock.Now().Add(total)
	c.running = true
}

// ForceComplete jumps straight to zero.
func (c *Countdown) ForceComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	left := c.deadline.Sub(c.clock.Now())
	if left <= 0 {
		c.running = false
		return 0
	}
	return left
}

// Seconds rounds up, the way a countdown is displayed.
func (c *Countdown) Seconds() int {
	left := c.Remaining()
	return int((left + time.Second - 1) / time.Second)
}
