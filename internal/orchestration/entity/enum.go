package entity

import (
	"strings"
)

type EventType string

const (
	EventTypeDossierCreated         EventType = "DOSSIER_CREATED"
	EventTypeStepCompleted          EventType = "STEP_COMPLETED"
	EventTypeDocumentApproved       EventType = "DOCUMENT_APPROVED"
	EventTypeDocumentRejected       EventType = "DOCUMENT_REJECTED"
	EventTypeDocumentUploaded       EventType = "DOCUMENT_UPLOADED"
	EventTypePaymentConfirmation    EventType = "PAYMENT_CONFIRMATION"
	EventTypePaymentFailed          EventType = "PAYMENT_FAILED"
	EventTypeAdminDocumentDelivered EventType = "ADMIN_DOCUMENT_DELIVERED"
	EventTypeAdminStepCompleted     EventType = "ADMIN_STEP_COMPLETED"
	EventTypeWelcome                EventType = "WELCOME"
)

func (et EventType) String() string {
	return string(et)
}

type ActorType string

const (
	ActorTypeSystem ActorType = "SYSTEM"
	ActorTypeAdmin  ActorType = "ADMIN"
	ActorTypeAgent  ActorType = "AGENT"
	ActorTypeClient ActorType = "CLIENT"
)

func (at ActorType) String() string {
	return string(at)
}

type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelInApp    Channel = "IN_APP"
	ChannelSMS      Channel = "SMS"
)

// Channels lists every supported delivery channel in display order.
var Channels = []Channel{ChannelEmail, ChannelWhatsApp, ChannelInApp, ChannelSMS}

func ChannelFromString(raw string) (Channel, bool) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(raw)))
	return ch, ch.Valid()
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsApp, ChannelInApp, ChannelSMS:
		return true
	default:
		return false
	}
}

func (c Channel) String() string {
	return string(c)
}

// ChannelNames returns the valid channel names joined by ", ".
func ChannelNames() string {
	names := make([]string, 0, len(Channels))
	for _, c := range Channels {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusSucceeded ExecutionStatus = "succeeded"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

func (s ExecutionStatus) String() string {
	return string(s)
}

type OutcomeStatus string

const (
	OutcomeStatusSent        OutcomeStatus = "sent"
	OutcomeStatusFailed      OutcomeStatus = "failed"
	OutcomeStatusSkipped     OutcomeStatus = "skipped"
	OutcomeStatusUnsupported OutcomeStatus = "unsupported"
)

func (s OutcomeStatus) String() string {
	return string(s)
}

type NotificationStatus string

const (
	NotificationStatusAll    NotificationStatus = "all"
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)
