// Package loadtest synthesizes concurrent client load against an HTTP
// endpoint and aggregates latency and throughput statistics.
//
// A Runner executes one load test per call: it spawns the configured number
// of virtual users, each looping request/think-time cycles until the run's
// end time or cancellation, and merges their outcomes into a single metrics
// object. Finished (and in-flight) results live in an in-memory registry
// keyed by test ID until explicitly cleared; nothing is persisted.
//
// Stress testing reuses the same runner, stepping the concurrency level up
// until a failure-rate threshold or a user ceiling is reached.
//
// All state is process-local. Construct one Runner at application start and
// inject it into consumers.
package loadtest
