// Package main is the entry point for the collaborative code room server.
//
// Clients create or join rooms over a WebSocket, share one code buffer per
// room, and run it in a sandboxed JavaScript runtime; every member sees the
// output.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 3000 -origin https://collaborative-code-editor-ui.vercel.app
//
//	# Development mode (colored logs, debug level, any origin)
//	./server -dev -origin "*"
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
