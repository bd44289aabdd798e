package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TekupDK/tekup-sub017/internal/calendar"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/mail"
	"github.com/TekupDK/tekup-sub017/internal/policy"
	"github.com/TekupDK/tekup-sub017/platform/apperr"
	"github.com/TekupDK/tekup-sub017/platform/events"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

type fakeThreads struct {
	thread mail.RawThread
	err    error
}

func (f *fakeThreads) Thread(ctx context.Context, threadID string) (mail.RawThread, error) {
	return f.thread, f.err
}

type fakeDeliverer struct {
	deliveries []Delivery
	err        error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, d Delivery) error {
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, d)
	return nil
}

type fakeStore struct {
	known bool
	saved []leads.Lead
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, lead leads.Lead) error {
	f.saved = append(f.saved, lead)
	return nil
}

func (f *fakeStore) HasRecentContact(ctx context.Context, email string, window time.Duration) (bool, error) {
	return f.known, nil
}

type fakeDrafter struct {
	text string
	err  error
}

func (f *fakeDrafter) Draft(ctx context.Context, lead leads.Lead, slots []calendar.Interval) (string, error) {
	return f.text, f.err
}

func brokerThread() mail.RawThread {
	return mail.RawThread{
		ID:      "t-1",
		Subject: "Jane Doe fra Rengøring.nu",
		Messages: []mail.RawMessage{
			{
				Sender:   "noreply@leadmail.no",
				SentAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
				BodyText: "Navn: Jane Doe\nEmail: jane@x.dk\nBolig: 180 m²",
			},
		},
	}
}

func newTestPipeline(t *testing.T, threads ThreadSource, opts ...Option) *Pipeline {
	t.Helper()
	log := logger.New("development")
	classifier := leads.NewClassifier([]string{"rendetalje.dk", "rendetalje"})
	return New(classifier, policy.NewEngine(349), threads, events.NewInMemoryBus(log), log, opts...)
}

func TestProcessThread_TemplateFlow(t *testing.T) {
	deliverer := &fakeDeliverer{}
	p := newTestPipeline(t, &fakeThreads{thread: brokerThread()}, WithDeliverer(deliverer))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if result.Drafted {
		t.Fatalf("no drafter configured, reply must be the template")
	}
	if !result.Check.Valid {
		t.Fatalf("template reply failed validation: %v", result.Check.Missing)
	}
	if !result.Delivered || len(deliverer.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliverer.deliveries))
	}

	d := deliverer.deliveries[0]
	if d.Mode != leads.ReplyNewThreadToCustomer {
		t.Fatalf("mode = %q, want %q", d.Mode, leads.ReplyNewThreadToCustomer)
	}
	if d.To != "jane@x.dk" {
		t.Fatalf("to = %q, want the customer address", d.To)
	}
	if !strings.Contains(d.Body, "349 kr") {
		t.Fatalf("body lacks the fixed rate: %q", d.Body)
	}
}

func TestProcessThread_ConfiguredRateFlowsIntoReply(t *testing.T) {
	log := logger.New("development")
	classifier := leads.NewClassifier([]string{"rendetalje.dk", "rendetalje"})
	deliverer := &fakeDeliverer{}
	p := New(classifier, policy.NewEngine(399), &fakeThreads{thread: brokerThread()},
		events.NewInMemoryBus(log), log, WithDeliverer(deliverer))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if !result.Check.Valid {
		t.Fatalf("reply at rate 399 failed validation: %v", result.Check.Missing)
	}
	if len(deliverer.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliverer.deliveries))
	}
	body := deliverer.deliveries[0].Body
	if !strings.Contains(body, "399 kr") {
		t.Fatalf("body does not quote the configured rate: %q", body)
	}
	if strings.Contains(body, "349 kr") {
		t.Fatalf("body still quotes the default rate: %q", body)
	}
}

func TestProcessThread_CompliantDraftIsSent(t *testing.T) {
	draft := "Hej Jane Doe, boligen på 180 m² tager 4-5 arbejdstimer med 2 medarbejdere. " +
		"Prisen er 349 kr pr. time, i alt 2792-3490 kr. Du betaler kun faktisk tidsforbrug. " +
		"Tager det mere end +1 time, kontakter vi dig. Vi har ledige tidspunkter på tirsdag."
	deliverer := &fakeDeliverer{}
	p := newTestPipeline(t, &fakeThreads{thread: brokerThread()},
		WithDeliverer(deliverer), WithDrafter(&fakeDrafter{text: draft}))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if !result.Drafted {
		t.Fatalf("compliant draft should have been accepted")
	}
	if result.ReplyText != draft {
		t.Fatalf("ReplyText = %q, want the draft verbatim", result.ReplyText)
	}
}

func TestProcessThread_NonCompliantDraftFallsBackToTemplate(t *testing.T) {
	p := newTestPipeline(t, &fakeThreads{thread: brokerThread()},
		WithDrafter(&fakeDrafter{text: "Hej, vi vender tilbage snarest."}))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if result.Drafted {
		t.Fatalf("non-compliant draft must not be sent verbatim")
	}
	if !result.Check.Valid {
		t.Fatalf("fallback template failed validation: %v", result.Check.Missing)
	}
}

func TestProcessThread_DraftOvertimeIsRepaired(t *testing.T) {
	draft := "Hej Jane Doe, boligen på 180 m² tager 4-5 arbejdstimer med 2 medarbejdere. " +
		"Prisen er 349 kr pr. time, i alt 2792-3490 kr. Du betaler kun faktisk tidsforbrug. " +
		"Tager det mere end +4 timer, kontakter vi dig. Vi har ledige tidspunkter på tirsdag."
	p := newTestPipeline(t, &fakeThreads{thread: brokerThread()},
		WithDrafter(&fakeDrafter{text: draft}))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if !result.Drafted {
		t.Fatalf("repairable draft should have been accepted after repair")
	}
	if strings.Contains(result.ReplyText, "+4 timer") {
		t.Fatalf("repaired reply still contains +4 timer: %q", result.ReplyText)
	}
	if !strings.Contains(result.ReplyText, "+1 time") {
		t.Fatalf("repaired reply lacks +1 time: %q", result.ReplyText)
	}
}

func TestProcessThread_DrafterFailureDegradesToTemplate(t *testing.T) {
	deliverer := &fakeDeliverer{}
	p := newTestPipeline(t, &fakeThreads{thread: brokerThread()},
		WithDeliverer(deliverer), WithDrafter(&fakeDrafter{err: errors.New("model unavailable")}))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("a drafter failure must not fail the pipeline: %v", err)
	}
	if result.Drafted {
		t.Fatalf("Drafted = true after drafter failure")
	}
	if !result.Delivered {
		t.Fatalf("template reply should still be delivered")
	}
}

func TestProcessThread_AnsweredThreadSendsNothing(t *testing.T) {
	thread := brokerThread()
	thread.Messages = append(thread.Messages, mail.RawMessage{
		Sender:   "info@rendetalje.dk",
		SentAt:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		BodyText: "Tilbud sendt",
	})
	deliverer := &fakeDeliverer{}
	p := newTestPipeline(t, &fakeThreads{thread: thread}, WithDeliverer(deliverer))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if result.Lead.Status != leads.StatusQuoteSent {
		t.Fatalf("status = %q, want QuoteSent", result.Lead.Status)
	}
	if result.Delivered || len(deliverer.deliveries) != 0 {
		t.Fatalf("answered thread must not trigger a reply")
	}
}

func TestProcessThread_BrokerRelayNeverReceivesReply(t *testing.T) {
	thread := brokerThread()
	// No email in the body: the From-header fallback yields the broker relay.
	thread.Messages[0].BodyText = "Navn: Jane Doe\nBolig: 180 m²"
	deliverer := &fakeDeliverer{}
	p := newTestPipeline(t, &fakeThreads{thread: thread}, WithDeliverer(deliverer))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if result.Delivered || len(deliverer.deliveries) != 0 {
		t.Fatalf("reply was routed to %v, broker relays are forbidden", deliverer.deliveries)
	}
}

func TestProcessThread_InThreadReplyAnswersRelay(t *testing.T) {
	thread := mail.RawThread{
		ID:      "t-2",
		Subject: "Rengøring af bolig",
		Messages: []mail.RawMessage{
			{
				Sender:   "Leadpoint <kontakt@leadpoint.dk>",
				SentAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
				BodyText: "Navn: Jane Doe\nEmail: jane@x.dk\nBolig: 180 m²\nSendt via leadpoint.dk",
			},
		},
	}
	deliverer := &fakeDeliverer{}
	p := newTestPipeline(t, &fakeThreads{thread: thread}, WithDeliverer(deliverer))

	result, err := p.ProcessThread(context.Background(), "t-2")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if !result.Delivered || len(deliverer.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliverer.deliveries))
	}
	d := deliverer.deliveries[0]
	if d.Mode != leads.ReplyInThread {
		t.Fatalf("mode = %q, want %q", d.Mode, leads.ReplyInThread)
	}
	if d.To != "kontakt@leadpoint.dk" {
		t.Fatalf("to = %q, want the thread sender", d.To)
	}
	if !strings.HasPrefix(d.Subject, "Re:") {
		t.Fatalf("subject = %q, want a reply subject", d.Subject)
	}
}

func TestProcessThread_PriorContactFlag(t *testing.T) {
	store := &fakeStore{known: true}
	p := newTestPipeline(t, &fakeThreads{thread: brokerThread()}, WithStore(store))

	result, err := p.ProcessThread(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ProcessThread: %v", err)
	}

	if !result.PriorContact {
		t.Fatalf("PriorContact = false, store reports recent contact")
	}
	if len(store.saved) != 1 {
		t.Fatalf("snapshot saves = %d, want 1", len(store.saved))
	}
}

func TestProcessThread_ThreadFetchErrorPropagates(t *testing.T) {
	p := newTestPipeline(t, &fakeThreads{err: errors.New("imap down")})

	_, err := p.ProcessThread(context.Background(), "t-9")
	if err == nil {
		t.Fatalf("expected an error when the thread fetch fails")
	}
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("error kind = %v, want Unavailable", apperr.GetKind(err))
	}
}

func TestProcessThread_NoThreadSource(t *testing.T) {
	p := newTestPipeline(t, nil)

	_, err := p.ProcessThread(context.Background(), "t-1")
	if err == nil {
		t.Fatalf("expected an error without a thread source")
	}
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("error kind = %v, want Internal", apperr.GetKind(err))
	}
}
