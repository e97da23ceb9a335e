/*
Package tracing provides lightweight request tracing for debugging production issues.

# Overview

Spans are created per HTTP request and per sandbox run, carry a trace id that
clients may supply through headers, and are logged through zap by a buffered
collector goroutine. It follows OpenTelemetry concepts with a minimal
implementation.

# Usage

	// Create tracer
	tracer := tracing.New("coderoom", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "compile")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("room_id", roomID)

# Trace Format

Traces use HTTP headers for propagation:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation

Both are echoed on every response.
*/
package tracing
