package entity

// Preview is what one channel would send for a dry-run.
type Preview struct {
	Channel   Channel
	Title     string
	Message   string
	ActionURL string
	Subject   string
	HTML      string
	To        string
}

type DryRunResult struct {
	Matched          bool
	WouldFire        bool
	Reason           string
	IsActive         bool
	EventTypeMatches bool
	Previews         []Preview
}
