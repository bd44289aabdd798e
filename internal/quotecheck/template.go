package quotecheck

import (
	"fmt"
	"strings"

	"github.com/TekupDK/tekup-sub017/internal/leads"
)

// Template builds the deterministic fallback quote from a priced lead. It is
// the text of last resort when drafting fails or a draft cannot be repaired,
// so it must always satisfy Validate.
func (c *Checker) Template(lead leads.Lead) string {
	price := lead.Price
	if price == nil {
		estimate := leads.PriceEstimate{}
		price = &estimate
	}

	name := strings.TrimSpace(lead.Contact.Name)
	if name == "" {
		name = "kunde"
	}

	crewPhrase := fmt.Sprintf("%d medarbejdere", price.CrewSize)
	if price.CrewSize == 1 {
		crewPhrase = "1 medarbejder"
	}

	area := lead.Property.AreaSqm
	var b strings.Builder
	fmt.Fprintf(&b, "Hej %s,\n\n", name)
	fmt.Fprintf(&b, "Tak for din henvendelse. Ud fra oplysningerne om boligen på %d m² regner vi med %d-%d arbejdstimer med %s.\n\n",
		area, price.EstimatedHours, price.EstimatedHours+1, crewPhrase)
	fmt.Fprintf(&b, "Prisen er %d kr pr. time pr. person inkl. moms, i alt %d-%d kr. Du betaler kun faktisk tidsforbrug.\n\n",
		c.rate, price.MinPrice, price.MaxPrice)
	b.WriteString("Skulle opgaven tage mere end +1 time ud over estimatet, kontakter vi dig, inden vi fortsætter.\n\n")
	b.WriteString("Vi har ledige tidspunkter i den kommende uge og finder gerne et, der passer jer.\n\n")
	b.WriteString("Med venlig hilsen\nRendetalje")
	return b.String()
}
