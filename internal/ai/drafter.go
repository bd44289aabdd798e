// Package ai drafts customer-facing prose with Gemini. Drafted text is never
// trusted: every draft goes through quote compliance validation before it can
// reach a customer, and a failed call degrades to the deterministic template.
package ai

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/TekupDK/tekup-sub017/internal/calendar"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// Drafter wraps the Gemini API behind a rate limiter.
type Drafter struct {
	client     *genai.Client
	model      string
	hourlyRate int
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a Drafter quoting the given hourly rate. requestsPerMin caps
// outbound calls; drafts beyond the burst wait for a token or fail on context
// cancellation.
func New(ctx context.Context, apiKey, model string, requestsPerMin, hourlyRate int, log *logger.Logger) (*Drafter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if requestsPerMin <= 0 {
		requestsPerMin = 10
	}
	return &Drafter{
		client:     client,
		model:      model,
		hourlyRate: hourlyRate,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), 2),
		log:        log,
	}, nil
}

// Draft produces quote prose for a priced lead. The prompt pins every figure
// the compliance rules check so the model has no room to invent its own.
func (d *Drafter) Draft(ctx context.Context, lead leads.Lead, slots []calendar.Interval) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	prompt := buildPrompt(lead, slots, d.hourlyRate)
	resp, err := d.client.Models.GenerateContent(ctx, d.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty draft from model %s", d.model)
	}
	return text, nil
}

func buildPrompt(lead leads.Lead, slots []calendar.Interval, hourlyRate int) string {
	var b strings.Builder
	b.WriteString("Skriv et kort, venligt tilbud på dansk til en rengøringskunde.\n\n")
	fmt.Fprintf(&b, "Kunde: %s\n", lead.Contact.Name)
	if lead.Property.AreaSqm > 0 {
		fmt.Fprintf(&b, "Bolig: %s på %d m²\n", strings.ToLower(lead.Property.Type), lead.Property.AreaSqm)
	}
	fmt.Fprintf(&b, "Opgavetype: %s\n", lead.ServiceType)
	if lead.Price != nil {
		fmt.Fprintf(&b, "Estimat: %d-%d arbejdstimer med %d medarbejdere, i alt %d-%d kr\n",
			lead.Price.EstimatedHours, lead.Price.EstimatedHours+1, lead.Price.CrewSize,
			lead.Price.MinPrice, lead.Price.MaxPrice)
	}
	if formatted := calendar.FormatSlots(slots, 3); formatted != "" {
		fmt.Fprintf(&b, "Ledige tidspunkter: %s\n", formatted)
	}
	b.WriteString("\nKrav til teksten:\n")
	b.WriteString("- Nævn boligens størrelse, antal medarbejdere og timeestimatet.\n")
	fmt.Fprintf(&b, "- Prisen er %d kr pr. time pr. person inkl. moms. Nævn den præcist.\n", hourlyRate)
	b.WriteString("- Skriv at kunden kun betaler faktisk tidsforbrug.\n")
	b.WriteString("- Skriv at vi kontakter kunden, hvis opgaven tager mere end +1 time ekstra.\n")
	b.WriteString("- Nævn de ledige tidspunkter.\n")
	b.WriteString("- Ingen emnelinje, ingen pladsholdere.\n")
	return b.String()
}
