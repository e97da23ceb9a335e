// Package server wires the code room server together.
//
// This package orchestrates all components:
//   - Session registry and the sandbox pool
//   - Event hub, run on its own goroutine for the server's lifetime
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, access log, tracing, metrics, CORS, rate limiting)
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Build the logger from the logging config
//  3. Create metrics, tracer, sandbox pool and registry
//  4. Start the event hub
//  5. Setup HTTP routes and middleware
//  6. Serve until a signal arrives
//  7. Shutdown: stop HTTP, stop the hub (cancels compiles, closes sockets), close the pool
//
// Routes:
//   - GET / and /health
//   - GET /api/stats, GET /api/rooms, POST /api/rooms, GET /api/rooms/:id
//   - GET /ws (event channel)
//   - GET /metrics (prometheus)
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Close()
package server
