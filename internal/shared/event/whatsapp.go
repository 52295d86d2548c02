package event

const WhatsAppDestination string = "notification_whatsapp"

type WhatsAppMessage struct {
	To           string `json:"to"`
	UserID       string `json:"user_id"`
	TemplateCode string `json:"template_code"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	ActionURL    string `json:"action_url,omitempty"`
	EventID      int64  `json:"event_id"`
	RuleID       int64  `json:"rule_id"`
}
