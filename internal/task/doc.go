// Package task provides the asynchronous task manager: scans are submitted
// once, executed on a small background worker pool, and polled to completion
// through status and result queries.
package task
