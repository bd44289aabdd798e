package mail

import (
	"strings"

	"github.com/TekupDK/tekup-sub017/platform/textnorm"
)

// BodyText picks the best plain-text rendition of a message body. Plain text
// wins when present; otherwise the HTML part is reconstructed into text with
// block boundaries preserved, so labeled lines stay on their own lines.
func BodyText(plain, htmlPart string) string {
	if strings.TrimSpace(plain) != "" {
		return textnorm.Collapse(plain)
	}
	if strings.TrimSpace(htmlPart) != "" {
		return textnorm.FromHTML(htmlPart)
	}
	return ""
}
