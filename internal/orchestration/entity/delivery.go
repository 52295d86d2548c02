package entity

// Content is the channel-agnostic rendering of an event for one template code.
type Content struct {
	Title     string
	Message   string
	ActionURL string
}

// Recipient is a resolved user with whatever contact details are on file.
type Recipient struct {
	UserID   string
	Email    string
	Phone    string
	FullName string
}

// Delivery is everything a channel needs to notify one recipient.
type Delivery struct {
	Channel   Channel
	Recipient Recipient
	Content   Content
	Event     Event
	Rule      Rule
}
