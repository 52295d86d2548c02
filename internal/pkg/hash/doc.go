// Package hash provides keyed hashing helpers.
//
// HMACSHA256 is used to compare shared secrets (for example the scheduler
// trigger secret) without leaking timing information.
package hash
