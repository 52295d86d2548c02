package entity

import "errors"

var (
	// ErrRecipientNotFound means no user could be derived from the event payload.
	ErrRecipientNotFound = errors.New("no recipient could be resolved")

	// ErrChannelSkipped means the recipient lacks the contact detail a channel needs.
	ErrChannelSkipped = errors.New("channel skipped")

	// ErrChannelUnsupported is returned by channels that exist in the enum but are not implemented.
	ErrChannelUnsupported = errors.New("channel not supported")

	// ErrChannelNotConfigured means provider credentials are missing.
	ErrChannelNotConfigured = errors.New("channel provider not configured")

	// ErrInvalidCondition is returned for malformed condition expressions.
	ErrInvalidCondition = errors.New("invalid condition")
)
