package leads

import (
	"fmt"
	"strings"
	"time"

	"github.com/TekupDK/tekup-sub017/internal/mail"
)

// isBusinessSender reports whether the sender address belongs to the business
// party rather than a customer or broker.
func isBusinessSender(sender string, ownDomains []string) bool {
	lowered := strings.ToLower(sender)
	for _, domain := range ownDomains {
		if domain != "" && strings.Contains(lowered, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// deriveStatus applies the conversational state rule:
//
//	one message or none            -> NeedsReply
//	no business reply in thread    -> NeedsReply
//	customer wrote after our reply -> NeedsReply
//	otherwise                      -> QuoteSent, detail says when we replied
func deriveStatus(messages []mail.RawMessage, ownDomains []string, now time.Time) (Status, string) {
	if len(messages) <= 1 {
		return StatusNeedsReply, ""
	}

	lastBusiness := -1
	for i, msg := range messages {
		if isBusinessSender(msg.Sender, ownDomains) {
			lastBusiness = i
		}
	}
	if lastBusiness == -1 {
		return StatusNeedsReply, ""
	}
	if lastBusiness < len(messages)-1 {
		return StatusNeedsReply, ""
	}

	return StatusQuoteSent, "sendt " + FormatReplyTime(messages[lastBusiness].SentAt, now)
}

// FormatReplyTime renders a timestamp as a Danish relative-time phrase:
// "i dag kl. 14:05", "i går kl. 14:05" or "d. 2/3 kl. 14:05".
func FormatReplyTime(t, now time.Time) string {
	clock := t.Format("15:04")

	if sameDay(t, now) {
		return "i dag kl. " + clock
	}
	if sameDay(t, now.AddDate(0, 0, -1)) {
		return "i går kl. " + clock
	}
	return fmt.Sprintf("d. %d/%d kl. %s", t.Day(), int(t.Month()), clock)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
