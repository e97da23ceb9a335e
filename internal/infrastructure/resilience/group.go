package resilience

import "sync"

// Group hands out one breaker per key, created lazily with shared settings.
// The event channel keys it by room id so a room that keeps timing out is
// throttled without affecting other rooms.
type Group struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewGroup creates an empty group.
func NewGroup(settings Settings) *Group {
	return &Group{
		settings: settings,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (g *Group) Get(key string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[key]
	if !ok {
		b = New(key, g.settings)
		g.breakers[key] = b
	}
	return b
}

// Open lists the keys whose breaker is currently open.
func (g *Group) Open() []string {
	g.mu.Lock()
	breakers := make([]*Breaker, 0, len(g.breakers))
	for _, b := range g.breakers {
		breakers = append(breakers, b)
	}
	g.mu.Unlock()

	var open []string
	for _, b := range breakers {
		if b.State() == StateOpen {
			open = append(open, b.Name())
		}
	}
	return open
}
