// Package middleware provides HTTP middleware for the room server.
//
// Middleware stack includes:
//   - CORS: a single allowed origin with credentials
//   - RateLimit: Per-IP token bucket rate limiting
//   - Recovery: Panic recovery with a JSON 500 response
//   - RequestLogger: zap access log
//
// Rate Limiting:
//   - Per-IP tracking with idle bucket cleanup
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigin)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
