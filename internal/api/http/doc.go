// Package http provides the REST side of the code room server.
//
// Endpoints:
//   - Liveness: / answers "Server is running", /health answers {status, timestamp}
//   - Stats: /api/stats aggregates rooms, connections, sandbox pool and open breakers
//   - Rooms: GET /api/rooms, GET /api/rooms/:id, POST /api/rooms
//
// Rooms created here start empty with no members; clients still join them
// over the event channel.
//
// Example Usage:
//
//	handlers := http.NewHandlers(registry, hub, pool, metrics, logger)
//	router.GET("/health", handlers.Health)
//	router.POST("/api/rooms", handlers.CreateRoom)
package http
