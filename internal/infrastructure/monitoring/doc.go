/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the room
server, tracking HTTP requests, WebSocket traffic, room counts and sandbox
runs. Each Metrics value owns a private registry.

# Features

- HTTP request metrics (latency, throughput, size)
- WebSocket connection and message metrics by direction and event
- Room gauges (rooms held, subscriptions)
- Compile metrics (outcome counter, duration histogram)
- Uptime, Go runtime and process collectors

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time a sandbox run
	timer := monitoring.NewTimer(metrics)
	// ... run code ...
	timer.Stop(monitoring.OutcomeSuccess)

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
