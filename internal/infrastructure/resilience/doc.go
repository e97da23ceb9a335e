/*
Package resilience provides circuit breaker implementation for graceful degradation.

# Overview

This package implements the circuit breaker pattern. The room server keeps one
breaker per room (see Group) and trips it when scripts submitted to that room
keep hitting the sandbox timeout, so a room stuck on an endless loop stops
occupying sandbox slots for a cooldown period.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable failure thresholds and timeouts
- Automatic state transitions
- State change callbacks for monitoring
- Two-step admission (Allow) for work that completes asynchronously
- Keyed groups of breakers (Group)

# Usage

	// Create a circuit breaker
	breaker := resilience.New("room-1", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker", zap.String("room", name), zap.Stringer("to", to))
		},
	})

	// Admit now, report the outcome when the work finishes
	done, err := breaker.Allow()
	if err == nil {
		go func() { done(run() == nil) }()
	}

# States

- Closed: Normal operation, requests pass through
- Open: Service unavailable, requests fail immediately
- Half-Open: Testing if service recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
