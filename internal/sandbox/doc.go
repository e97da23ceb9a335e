/*
Package sandbox runs untrusted JavaScript submitted to a room.

# Overview

Code is evaluated by the goja engine as the body of an immediately invoked
arrow function, so top-level return statements and declarations behave as
they would inside a function. The only host capability is console.log; its
arguments are rendered (strings verbatim, plain objects and arrays as JSON),
joined by a single space and appended to an output buffer with no separator
between calls.

# Outcomes

  - Success: the accumulated output, or NoOutput when console.log was never called
  - KindError: any thrown value, syntax error or call stack overflow
  - KindTimeout: the wall-clock limit interrupted the script
  - KindCancelled: the caller's context ended first
  - KindInternal: a host-side panic during evaluation

Failure messages start with ErrorPrefix. Output captured before a failure is
discarded.

# Isolation

require, process, module, exports and the timer functions are undefined.
Every run gets a fresh VM: Pool resets a runtime before returning it, and the
pool size bounds how many scripts evaluate at once.

# Usage Example

	pool, err := sandbox.NewPool(sandbox.Config{
		Timeout:  5 * time.Second,
		PoolSize: 4,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := pool.Run(ctx, `console.log("a"); console.log("b")`)
	// result.Output == "ab"
*/
package sandbox
