// Package pipeline orchestrates the path from inbound thread to delivered,
// policy-compliant reply. The core stages (classify, policy, validate,
// assemble) are pure; all I/O lives behind the interfaces here.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TekupDK/tekup-sub017/internal/assemble"
	"github.com/TekupDK/tekup-sub017/internal/calendar"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/mail"
	"github.com/TekupDK/tekup-sub017/internal/policy"
	"github.com/TekupDK/tekup-sub017/internal/quotecheck"
	"github.com/TekupDK/tekup-sub017/platform/apperr"
	"github.com/TekupDK/tekup-sub017/platform/events"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// PriorContactWindow is how far back a customer email counts as an existing
// relationship.
const PriorContactWindow = 30 * 24 * time.Hour

// ThreadSource supplies raw threads, already decoded to plain text.
type ThreadSource interface {
	Thread(ctx context.Context, threadID string) (mail.RawThread, error)
}

// BusyFetcher supplies calendar busy intervals.
type BusyFetcher interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]calendar.Interval, error)
}

// Drafter turns a priced lead into prose. Its output is never sent without
// passing compliance validation.
type Drafter interface {
	Draft(ctx context.Context, lead leads.Lead, slots []calendar.Interval) (string, error)
}

// Delivery is one outbound reply, routed per the lead's strategy.
type Delivery struct {
	ThreadID string
	Mode     leads.ReplyMode
	To       string
	Subject  string
	Body     string
}

// Deliverer sends the final reply.
type Deliverer interface {
	Deliver(ctx context.Context, delivery Delivery) error
}

// Store persists lead snapshots and answers prior-contact lookups.
type Store interface {
	SaveSnapshot(ctx context.Context, lead leads.Lead) error
	HasRecentContact(ctx context.Context, email string, window time.Duration) (bool, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Lead         leads.Lead        `json:"lead"`
	ReplyText    string            `json:"replyText,omitempty"`
	Drafted      bool              `json:"drafted"`
	Check        quotecheck.Result `json:"check"`
	PriorContact bool              `json:"priorContact"`
	Delivered    bool              `json:"delivered"`
}

type Pipeline struct {
	classifier *leads.Classifier
	policy     *policy.Engine
	check      *quotecheck.Checker
	threads    ThreadSource
	busy       BusyFetcher
	drafter    Drafter
	deliverer  Deliverer
	store      Store
	bus        events.Bus
	log        *logger.Logger
	maxTokens  int
	now        func() time.Time
}

type Option func(*Pipeline)

// WithDrafter enables generative drafting. Without it every reply is the
// deterministic template.
func WithDrafter(d Drafter) Option { return func(p *Pipeline) { p.drafter = d } }

// WithDeliverer enables sending. Without it the pipeline stops after
// producing the reply text.
func WithDeliverer(d Deliverer) Option { return func(p *Pipeline) { p.deliverer = d } }

// WithStore enables snapshot persistence and prior-contact lookups.
func WithStore(s Store) Option { return func(p *Pipeline) { p.store = s } }

// WithBusyFetcher enables calendar-backed slot suggestions.
func WithBusyFetcher(b BusyFetcher) Option { return func(p *Pipeline) { p.busy = b } }

// WithMaxTokens caps the assembled reply length.
func WithMaxTokens(n int) Option { return func(p *Pipeline) { p.maxTokens = n } }

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func New(classifier *leads.Classifier, engine *policy.Engine, threads ThreadSource, bus events.Bus, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		policy:     engine,
		check:      quotecheck.NewChecker(engine.HourlyRate()),
		threads:    threads,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessThread runs the full pipeline for one thread. Thread and calendar
// fetches run concurrently; everything after is sequential and pure until
// delivery.
func (p *Pipeline) ProcessThread(ctx context.Context, threadID string) (Result, error) {
	if p.threads == nil {
		return Result{}, apperr.Internal("no thread source configured")
	}

	start := time.Now()
	defer func() {
		p.log.PipelineStage("process_thread", threadID, float64(time.Since(start).Milliseconds()))
	}()

	var (
		thread mail.RawThread
		busy   []calendar.Interval
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		thread, err = p.threads.Thread(gctx, threadID)
		if err != nil {
			return apperr.Wrap(apperr.KindUnavailable, fmt.Sprintf("fetch thread %s", threadID), err)
		}
		return nil
	})
	g.Go(func() error {
		if p.busy == nil {
			return nil
		}
		from := p.now()
		intervals, err := p.busy.BusyIntervals(gctx, from, from.AddDate(0, 0, 7))
		if err != nil {
			// Slot suggestions are an enrichment, not a requirement.
			p.log.Warn("calendar fetch failed, continuing without slots", "error", err)
			return nil
		}
		busy = intervals
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return p.process(ctx, thread, busy, true)
}

// Process runs the pipeline over an already-fetched thread. With deliver set
// to false it stops after producing the validated reply text, which is what
// the preview API uses.
func (p *Pipeline) Process(ctx context.Context, thread mail.RawThread, deliver bool) (Result, error) {
	var busy []calendar.Interval
	if p.busy != nil {
		from := p.now()
		intervals, err := p.busy.BusyIntervals(ctx, from, from.AddDate(0, 0, 7))
		if err != nil {
			p.log.Warn("calendar fetch failed, continuing without slots", "error", err)
		} else {
			busy = intervals
		}
	}
	return p.process(ctx, thread, busy, deliver)
}

func (p *Pipeline) process(ctx context.Context, thread mail.RawThread, busy []calendar.Interval, deliver bool) (Result, error) {
	threadID := thread.ID
	lead := p.policy.Apply(p.classifier.Classify(thread))
	p.bus.Publish(ctx, leads.NewLeadParsed(lead))

	result := Result{Lead: lead}

	if p.store != nil {
		if lead.Contact.Email != "" {
			known, err := p.store.HasRecentContact(ctx, lead.Contact.Email, PriorContactWindow)
			if err != nil {
				p.log.DatabaseError("prior contact lookup", err)
			} else if known {
				result.PriorContact = true
				p.log.Warn("customer contacted within the window", "thread_id", threadID, "email", lead.Contact.Email)
			}
		}
		if err := p.store.SaveSnapshot(ctx, lead); err != nil {
			p.log.DatabaseError("save lead snapshot", err)
		}
	}

	if lead.Status != leads.StatusNeedsReply {
		// Already answered; nothing to send.
		return result, nil
	}

	slots := calendar.FreeSlots(busy, p.now(), 5, time.Hour)
	text, check, drafted := p.buildReply(ctx, lead, slots)
	result.ReplyText, result.Check, result.Drafted = text, check, drafted

	if !deliver || p.deliverer == nil {
		return result, nil
	}

	delivery, ok := p.routeDelivery(lead, thread, text)
	if !ok {
		p.bus.Publish(ctx, leads.NewQuoteBlocked(threadID, []string{"modtageradresse"}))
		p.log.QuoteBlocked(threadID, []string{"modtageradresse"})
		return result, nil
	}

	if err := p.deliverer.Deliver(ctx, delivery); err != nil {
		return result, fmt.Errorf("deliver reply for %s: %w", threadID, err)
	}
	result.Delivered = true
	p.bus.Publish(ctx, leads.NewQuoteSent(threadID, delivery.Mode, delivery.To))
	return result, nil
}

// buildReply drafts, validates and, when needed, repairs or falls back to the
// template. Validation always runs on whatever text is returned.
func (p *Pipeline) buildReply(ctx context.Context, lead leads.Lead, slots []calendar.Interval) (string, quotecheck.Result, bool) {
	if p.drafter != nil {
		draft, err := p.drafter.Draft(ctx, lead, slots)
		if err != nil {
			p.log.DraftFallback(lead.ThreadID, err)
		} else if text, check, ok := p.acceptDraft(ctx, lead, draft); ok {
			return p.finalize(lead, text, check, true, slots)
		}
	}

	text := p.check.Template(lead)
	check := p.check.Validate(text, &lead)
	return p.finalize(lead, text, check, false, slots)
}

// acceptDraft validates a draft and attempts the deterministic overtime
// repair once. A draft that still fails is rejected; the generative service
// never gets a second try with a patched prompt.
func (p *Pipeline) acceptDraft(ctx context.Context, lead leads.Lead, draft string) (string, quotecheck.Result, bool) {
	check := p.check.Validate(draft, &lead)
	if check.Valid && len(check.Warnings) == 0 {
		return draft, check, true
	}

	repaired := quotecheck.RepairOvertimeClause(draft)
	recheck := p.check.Validate(repaired.Fixed, &lead)
	if recheck.Valid && len(recheck.Warnings) == 0 {
		return repaired.Fixed, recheck, true
	}

	p.bus.Publish(ctx, leads.NewQuoteBlocked(lead.ThreadID, recheck.Missing))
	p.log.QuoteBlocked(lead.ThreadID, recheck.Missing)
	return "", quotecheck.Result{}, false
}

// finalize assembles the reply under the token budget and re-validates the
// assembled text, since truncation could cut a required clause.
func (p *Pipeline) finalize(lead leads.Lead, text string, check quotecheck.Result, drafted bool, slots []calendar.Interval) (string, quotecheck.Result, bool) {
	sections := []assemble.Section{{Type: "quote", Content: text, Priority: 9}}
	if formatted := calendar.FormatSlots(slots, 3); formatted != "" && !drafted {
		sections = append(sections, assemble.Section{
			Type:     "slots",
			Content:  "Konkrete ledige tidspunkter: " + formatted,
			Priority: 5,
		})
	}

	assembled := assemble.Assemble(sections, p.maxTokens)
	finalCheck := p.check.Validate(assembled, &lead)
	if !finalCheck.Valid {
		// The budget cut into required content; send the untruncated
		// template instead.
		fallback := p.check.Template(lead)
		return fallback, p.check.Validate(fallback, &lead), false
	}
	if assembled != text {
		return assembled, finalCheck, drafted
	}
	return text, check, drafted
}

// routeDelivery applies the reply strategy. In-thread replies answer the
// latest non-business sender of the thread; the new-email modes require the
// customer's own address and never fall back to the broker's relay.
func (p *Pipeline) routeDelivery(lead leads.Lead, thread mail.RawThread, body string) (Delivery, bool) {
	strategy := lead.Reply
	if strategy == nil {
		return Delivery{}, false
	}

	delivery := Delivery{
		ThreadID: lead.ThreadID,
		Mode:     strategy.Mode,
		Body:     body,
	}
	switch strategy.Mode {
	case leads.ReplyInThread:
		to := p.classifier.ReplyRecipient(thread)
		if to == "" {
			return Delivery{}, false
		}
		delivery.To = to
		delivery.Subject = replySubject(lead.Subject)
		return delivery, true
	default:
		if strategy.ReplyTo == "" {
			return Delivery{}, false
		}
		// The From-header fallback can surface a broker relay address as the
		// contact email. Those must never receive a reply.
		if leads.DetectSource(strategy.ReplyTo, "") != leads.SourceUnknown {
			return Delivery{}, false
		}
		delivery.To = strategy.ReplyTo
		delivery.Subject = "Tilbud på rengøring fra Rendetalje"
		return delivery, true
	}
}

func replySubject(subject string) string {
	if subject == "" {
		return "Re: Rengøring"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
