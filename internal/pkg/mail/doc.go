// Package mail sends the EMAIL channel's messages.
//
// Two drivers exist: plain SMTP for local relays and mail catchers, and
// Amazon SES for production. Both accept the same Message and apply the same
// sender fallback and recipient checks.
package mail
