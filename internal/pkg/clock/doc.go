// Package clock lets the scheduler, the retry backoff and token expiry read
// time through an interface that tests replace with a fixed instant.
package clock
