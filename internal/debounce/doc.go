// Package debounce delays propagation of rapidly changing input and keeps
// at most one asynchronous call current per stream.
//
// Func is the primitive: each Trigger replaces the pending argument and
// restarts the quiet-period timer. Value and Call are built on it. Call
// additionally cancels the previous in-flight call whenever a new one is
// issued, and judges staleness by generation number: a result is applied
// only if its generation is still the current one, whatever order results
// arrive in.
//
// All timers come from a clock.Clock and are stopped by Close.
package debounce
