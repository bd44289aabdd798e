package leads

import (
	"regexp"
	"strings"
	"time"

	"github.com/TekupDK/tekup-sub017/internal/extract"
	"github.com/TekupDK/tekup-sub017/internal/mail"
)

// Classifier turns raw threads into Lead records. It is pure apart from the
// injected clock, which exists so status phrasing is testable.
type Classifier struct {
	ownDomains []string
	now        func() time.Time
}

func NewClassifier(ownDomains []string) *Classifier {
	return &Classifier{ownDomains: ownDomains, now: time.Now}
}

// WithClock returns a copy of the classifier using the given clock.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	return &Classifier{ownDomains: c.ownDomains, now: now}
}

var senderAddressRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// ReplyRecipient resolves where an in-thread answer goes: the address of the
// most recent message not written by the business itself. For channels that
// relay the conversation this is the relay address, which in-thread mode is
// allowed to answer.
func (c *Classifier) ReplyRecipient(thread mail.RawThread) string {
	for i := len(thread.Messages) - 1; i >= 0; i-- {
		sender := thread.Messages[i].Sender
		if isBusinessSender(sender, c.ownDomains) {
			continue
		}
		if addr := senderAddressRegex.FindString(sender); addr != "" {
			return addr
		}
	}
	return ""
}

// Classify derives a Lead from a thread. All fields except status come from
// the first message; later messages only move the conversational state.
// Reply strategy and price estimate are left nil for the policy engine.
func (c *Classifier) Classify(thread mail.RawThread) Lead {
	lead := Lead{
		ThreadID: thread.ID,
		Subject:  thread.Subject,
		Source:   SourceUnknown,
		Status:   StatusNeedsReply,
		Contact:  Contact{Name: extract.UnknownCustomer},
		Property: Property{Type: "Ukendt"},
	}

	first, ok := thread.First()
	if !ok {
		// An empty thread still yields a usable record: fall back to the
		// subject as the customer name.
		if name := strings.TrimSpace(thread.Subject); name != "" {
			lead.Contact.Name = name
		}
		lead.ServiceType = "Engangsopgave"
		return lead
	}

	body := first.BodyText

	lead.Source = DetectSource(first.Sender, body)
	lead.Contact = Contact{
		Name:    extract.Name(thread.Subject, body),
		Email:   extract.Email(body, first.Sender, c.ownDomains),
		Phone:   extract.Phone(body),
		Address: extract.Address(body),
	}
	lead.Property = Property{
		AreaSqm: extract.AreaSqm(body),
		Rooms:   extract.Rooms(body),
		Type:    extract.PropertyType(body),
	}
	lead.ServiceType = extract.ServiceType(body)
	lead.PriceHint = extract.PriceHint(body)
	lead.Status, lead.StatusDetail = deriveStatus(thread.Messages, c.ownDomains, c.now())

	return lead
}
