// Package leads defines the lead model and the classifier that derives a
// structured lead from an inbound email thread.
package leads

import "fmt"

// Source identifies the broker channel a lead arrived through.
type Source string

const (
	SourceRengoringNu     Source = "Rengøring.nu"
	SourceRengoringAarhus Source = "Rengøring Aarhus"
	SourceAdHelp          Source = "AdHelp"
	SourceUnknown         Source = "Ukendt"
)

// Status is the conversational state of a lead thread.
type Status string

const (
	StatusNeedsReply    Status = "NeedsReply"
	StatusQuoteSent     Status = "QuoteSent"
	StatusAwaitingReply Status = "AwaitingReply"
	StatusConfirmed     Status = "Confirmed"
)

// ReplyMode dictates how a reply to the customer must be delivered.
type ReplyMode string

const (
	// ReplyNewThreadToCustomer starts a fresh email to the customer's own
	// address. Used for channels whose relay address must never receive a
	// reply.
	ReplyNewThreadToCustomer ReplyMode = "CREATE_NEW_EMAIL"
	// ReplyDirectToCustomer mails the customer directly.
	ReplyDirectToCustomer ReplyMode = "DIRECT_TO_CUSTOMER"
	// ReplyInThread answers within the existing thread.
	ReplyInThread ReplyMode = "REPLY_IN_THREAD"
)

// Contact is the customer contact information recovered from the thread.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Property describes the dwelling the customer wants cleaned.
type Property struct {
	AreaSqm int    `json:"areaSqm"`
	Rooms   *int   `json:"rooms,omitempty"`
	Type    string `json:"type"`
}

// ReplyStrategy is the policy decision about where a reply may go. It is
// data, not behavior: delivery happens elsewhere and must follow it exactly.
type ReplyStrategy struct {
	Mode    ReplyMode `json:"mode"`
	ReplyTo string    `json:"replyTo,omitempty"`
}

// PriceEstimate is the deterministic price band computed from property size.
type PriceEstimate struct {
	EstimatedHours int `json:"estimatedHours"`
	CrewSize       int `json:"crewSize"`
	MinPrice       int `json:"minPrice"`
	MaxPrice       int `json:"maxPrice"`
}

// Formatted renders the estimate the way it appears in customer-facing text,
// e.g. "2094-2792 kr (2 pers, 3-4t)".
func (p PriceEstimate) Formatted() string {
	return fmt.Sprintf("%d-%d kr (%d pers, %d-%dt)",
		p.MinPrice, p.MaxPrice, p.CrewSize, p.EstimatedHours, p.EstimatedHours+1)
}

// Lead is the structured record produced by the classifier. ReplyStrategy and
// PriceEstimate are filled in afterwards by the policy engine.
type Lead struct {
	ThreadID     string         `json:"threadId"`
	Subject      string         `json:"subject"`
	Source       Source         `json:"source"`
	Contact      Contact        `json:"contact"`
	Property     Property       `json:"property"`
	ServiceType  string         `json:"serviceType"`
	PriceHint    string         `json:"priceHint,omitempty"`
	Status       Status         `json:"status"`
	StatusDetail string         `json:"statusDetail,omitempty"`
	Reply        *ReplyStrategy `json:"replyStrategy,omitempty"`
	Price        *PriceEstimate `json:"priceEstimate,omitempty"`
}
