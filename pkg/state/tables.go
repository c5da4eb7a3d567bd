package state

import (
	"sync"
	"time"

	"github.com/urmzd/hearth/pkg/clock"
)

// Overrides tracks manual-control stamps. An entry is active while
// now - stamp < ttl and is removed the first time it is read after that.
type Overrides struct {
	mu     sync.Mutex
	clock  clock.Clock
	ttl    time.Duration
	stamps map[string]time.Time
}

// NewOverrides returns an empty table.
func NewOverrides(c clock.Clock, ttl time.Duration) *Overrides {
	return &Overrides{clock: c, ttl: ttl, stamps: make(map[string]time.Time)}
}

// Set stamps id with the current time, replacing any earlier stamp.
func (o *Overrides) Set(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stamps[id] = o.clock.Now()
}

// Clear removes id.
func (o *Overrides) Clear(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.stamps, id)
}

// Active reports whether id is under an unexpired override.
func (o *Overrides) Active(id string) bool {
	return o.activeAt(id, o.clock.Now())
}

func (o *Overrides) activeAt(id string, now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	stamp, ok := o.stamps[id]
	if !ok {
		return false
	}
	if now.Sub(stamp) < o.ttl {
		return true
	}
	delete(o.stamps, id)
	return false
}

// Snapshot returns the expiry time of every active override.
func (o *Overrides) Snapshot() map[string]time.Time {
	now := o.clock.Now()
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]time.Time, len(o.stamps))
	for id, stamp := range o.stamps {
		if now.Sub(stamp) >= o.ttl {
			delete(o.stamps, id)
			continue
		}
		out[id] = stamp.Add(o.ttl)
	}
	return out
}

// Cooldowns tracks when each alert last fired.
type Cooldowns struct {
	mu     sync.Mutex
	clock  clock.Clock
	ttl    time.Duration
	stamps map[string]firing
}

type firing struct {
	at     time.Time
	window time.Duration
}

// NewCooldowns returns an empty table. ttl is the cooldown used when a caller
// does not name one.
func NewCooldowns(c clock.Clock, ttl time.Duration) *Cooldowns {
	return &Cooldowns{clock: c, ttl: ttl, stamps: make(map[string]firing)}
}

// CanFire reports whether alertID may fire now, and stamps it if so. It fires
// when there is no prior stamp or more than cooldown has elapsed since it.
// A non-positive cooldown uses the table default.
func (c *Cooldowns) CanFire(alertID string, cooldown time.Duration) bool {
	return c.canFireAt(alertID, cooldown, c.clock.Now())
}

func (c *Cooldowns) canFireAt(alertID string, cooldown time.Duration, now time.Time) bool {
	if cooldown <= 0 {
		cooldown = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.stamps[alertID]; ok && now.Sub(last.at) <= cooldown {
		return false
	}
	c.pruneLocked(now)
	c.stamps[alertID] = firing{at: now, window: cooldown}
	return true
}

// pruneLocked drops stamps whose own cooldown has elapsed.
func (c *Cooldowns) pruneLocked(now time.Time) {
	for id, f := range c.stamps {
		if now.Sub(f.at) > f.window {
			delete(c.stamps, id)
		}
	}
}

// Len returns the number of stamps held, expired or not.
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stamps)
}

// Reset forgets alertID.
func (c *Cooldowns) Reset(alertID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stamps, alertID)
}
