// Package config provides 12-factor configuration management for the room server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP listen address and the single allowed cross-origin
//   - Logging: Log level and output format
//   - RateLimit: HTTP rate limiting, per IP or one global bucket
//   - WebSocket: Per-connection message rate and frame size limits
//   - Sandbox: Execution timeout, pool size, call stack depth, compile breaker
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server running on %s\n", cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, ALLOWED_ORIGIN
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_GLOBAL
//   - WS_MESSAGES_PER_SECOND, WS_MESSAGE_BURST, WS_MAX_MESSAGE_BYTES
//   - SANDBOX_TIMEOUT, SANDBOX_POOL_SIZE, SANDBOX_MAX_CALL_STACK
//   - COMPILE_BREAKER_FAILURES, COMPILE_BREAKER_COOLDOWN
package config
