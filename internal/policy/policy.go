// Package policy holds the pure reply-routing and pricing rules. Both are
// deterministic tables with no I/O; generated text never overrides them.
package policy

import "github.com/TekupDK/tekup-sub017/internal/leads"

// DefaultHourlyRate is the flat rate in kroner per person-hour, VAT included.
const DefaultHourlyRate = 349

type Engine struct {
	hourlyRate int
}

func NewEngine(hourlyRate int) *Engine {
	if hourlyRate <= 0 {
		hourlyRate = DefaultHourlyRate
	}
	return &Engine{hourlyRate: hourlyRate}
}

func (e *Engine) HourlyRate() int { return e.hourlyRate }

// Strategy returns the reply routing for a broker channel. Some channels
// forbid replying to their relay address, so the reply must open a fresh
// email to the customer instead. An unknown source gets the safest mode:
// answer within the thread, never send externally to an unverified address.
func (e *Engine) Strategy(source leads.Source, contact leads.Contact) leads.ReplyStrategy {
	switch source {
	case leads.SourceRengoringNu:
		return leads.ReplyStrategy{Mode: leads.ReplyNewThreadToCustomer, ReplyTo: contact.Email}
	case leads.SourceAdHelp:
		return leads.ReplyStrategy{Mode: leads.ReplyDirectToCustomer, ReplyTo: contact.Email}
	default:
		return leads.ReplyStrategy{Mode: leads.ReplyInThread}
	}
}

// Price computes the deterministic price band for a property size.
//
//	< 100 m²  -> 2 hours
//	< 150 m²  -> 3 hours
//	< 200 m²  -> 4 hours
//	otherwise -> ceil(area / 50) hours
//
// Crew size is 2 above 150 m², else 1. The band spans the estimate and one
// extra hour.
func (e *Engine) Price(areaSqm int) leads.PriceEstimate {
	var hours int
	switch {
	case areaSqm < 100:
		hours = 2
	case areaSqm < 150:
		hours = 3
	case areaSqm < 200:
		hours = 4
	default:
		hours = (areaSqm + 49) / 50
	}

	crew := 1
	if areaSqm > 150 {
		crew = 2
	}

	return leads.PriceEstimate{
		EstimatedHours: hours,
		CrewSize:       crew,
		MinPrice:       hours * crew * e.hourlyRate,
		MaxPrice:       (hours + 1) * crew * e.hourlyRate,
	}
}

// Apply decorates a classified lead with its reply strategy and price band.
func (e *Engine) Apply(lead leads.Lead) leads.Lead {
	strategy := e.Strategy(lead.Source, lead.Contact)
	price := e.Price(lead.Property.AreaSqm)
	lead.Reply = &strategy
	lead.Price = &price
	return lead
}
