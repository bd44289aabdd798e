package leads

import "github.com/TekupDK/tekup-sub017/platform/events"

const (
	EventLeadParsed   = "leads.lead.parsed"
	EventQuoteSent    = "leads.quote.sent"
	EventQuoteBlocked = "leads.quote.blocked"
)

// LeadParsed fires after a thread has been classified into a Lead.
type LeadParsed struct {
	events.BaseEvent
	Lead Lead
}

func NewLeadParsed(lead Lead) LeadParsed {
	return LeadParsed{BaseEvent: events.NewBaseEvent(), Lead: lead}
}

func (e LeadParsed) EventName() string { return EventLeadParsed }

// QuoteSent fires after a reply has been handed to the delivery channel.
type QuoteSent struct {
	events.BaseEvent
	ThreadID string
	Mode     ReplyMode
	ReplyTo  string
}

func NewQuoteSent(threadID string, mode ReplyMode, replyTo string) QuoteSent {
	return QuoteSent{BaseEvent: events.NewBaseEvent(), ThreadID: threadID, Mode: mode, ReplyTo: replyTo}
}

func (e QuoteSent) EventName() string { return EventQuoteSent }

// QuoteBlocked fires when compliance validation stopped a drafted reply from
// being sent verbatim.
type QuoteBlocked struct {
	events.BaseEvent
	ThreadID string
	Missing  []string
}

func NewQuoteBlocked(threadID string, missing []string) QuoteBlocked {
	return QuoteBlocked{BaseEvent: events.NewBaseEvent(), ThreadID: threadID, Missing: missing}
}

func (e QuoteBlocked) EventName() string { return EventQuoteBlocked }
