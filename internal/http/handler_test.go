package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TekupDK/tekup-sub017/internal/config"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/leads/repository"
	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/internal/policy"
	"github.com/TekupDK/tekup-sub017/platform/events"
	"github.com/TekupDK/tekup-sub017/platform/logger"
	"github.com/TekupDK/tekup-sub017/platform/validator"
)

type fakeDeliverer struct {
	deliveries []pipeline.Delivery
}

func (f *fakeDeliverer) Deliver(_ context.Context, d pipeline.Delivery) error {
	f.deliveries = append(f.deliveries, d)
	return nil
}

type fakeEnqueuer struct {
	enqueued []string
}

func (f *fakeEnqueuer) EnqueueProcessThread(_ context.Context, threadID string) error {
	f.enqueued = append(f.enqueued, threadID)
	return nil
}

type fakeLister struct {
	items []leads.Lead
}

func (f *fakeLister) ListRecent(_ context.Context, _ int) ([]leads.Lead, error) {
	return f.items, nil
}

func (f *fakeLister) GetByThread(_ context.Context, threadID string) (leads.Lead, error) {
	for _, lead := range f.items {
		if lead.ThreadID == threadID {
			return lead, nil
		}
	}
	return leads.Lead{}, repository.ErrNotFound
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeDeliverer, *fakeEnqueuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("development")
	classifier := leads.NewClassifier([]string{"rendetalje.dk", "rendetalje"})
	engine := policy.NewEngine(0)
	bus := events.NewInMemoryBus(log)
	pipe := pipeline.New(classifier, engine, nil, bus, log)

	deliverer := &fakeDeliverer{}
	enqueuer := &fakeEnqueuer{}
	lister := &fakeLister{items: []leads.Lead{{
		ThreadID: "t-1",
		Source:   leads.SourceRengoringNu,
		Contact:  leads.Contact{Name: "Jane Doe"},
		Property: leads.Property{AreaSqm: 180},
		Status:   leads.StatusNeedsReply,
	}}}

	h := NewHandler(classifier, engine, pipe, deliverer, enqueuer, lister, validator.New(), log)
	cfg := &config.Config{Env: "development", CORSAllowAll: true}
	return NewRouter(cfg, h, log), deliverer, enqueuer
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestParseLead(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := map[string]any{
		"thread": map[string]any{
			"threadId": "t-42",
			"subject":  "Rene Fly Jensen fra Rengøring.nu",
			"messages": []map[string]any{{
				"sender":   "noreply@leadmail.example",
				"sentAt":   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
				"bodyText": "Navn: Jane Doe\nEmail: jane@x.dk\nBolig: 180 m²",
			}},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/leads/parse", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ParseLeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Lead.Source != leads.SourceRengoringNu {
		t.Fatalf("expected source %q, got %q", leads.SourceRengoringNu, resp.Lead.Source)
	}
	if resp.Lead.Contact.Email != "jane@x.dk" {
		t.Fatalf("expected customer email, got %q", resp.Lead.Contact.Email)
	}
	if resp.Lead.Price == nil || resp.Lead.Price.MinPrice != 2792 {
		t.Fatalf("expected price band starting at 2792, got %+v", resp.Lead.Price)
	}
	if resp.Lead.Reply == nil || resp.Lead.Reply.Mode != leads.ReplyNewThreadToCustomer {
		t.Fatalf("expected new-thread reply mode, got %+v", resp.Lead.Reply)
	}
}

func TestParseLead_MissingThreadID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := map[string]any{"thread": map[string]any{"subject": "no id"}}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/leads/parse", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetLead(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leads/t-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ParseLeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Lead.Contact.Name != "Jane Doe" {
		t.Fatalf("expected stored snapshot, got %+v", resp.Lead)
	}
}

func TestGetLead_UnknownThread(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leads/t-404", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateReply_ProducesCompliantText(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := map[string]any{
		"thread": map[string]any{
			"threadId": "t-43",
			"subject":  "Rengøring af villa",
			"messages": []map[string]any{{
				"sender":   "noreply@leadmail.example",
				"sentAt":   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
				"bodyText": "Navn: Jane Doe\nEmail: jane@x.dk\nBolig: 180 m²",
			}},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/replies/generate", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp GenerateReplyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Result.Check.Valid {
		t.Fatalf("expected compliant reply, missing: %v", resp.Result.Check.Missing)
	}
	if !strings.Contains(resp.Result.ReplyText, "349 kr") {
		t.Fatalf("reply should state the hourly rate, got: %s", resp.Result.ReplyText)
	}
	if resp.Result.Delivered {
		t.Fatal("generate must never deliver")
	}
}

func TestApproveReply_RevalidatesBody(t *testing.T) {
	router, deliverer, _ := newTestRouter(t)

	body := ApproveReplyRequest{
		ThreadID: "t-44",
		Mode:     leads.ReplyNewThreadToCustomer,
		To:       "jane@x.dk",
		Subject:  "Tilbud på rengøring fra Rendetalje",
		Body:     "Hej, det koster cirka 500 kr.",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/replies/approve", body)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for non-compliant body, got %d", rec.Code)
	}
	if len(deliverer.deliveries) != 0 {
		t.Fatal("non-compliant reply must not be delivered")
	}
}

func TestApproveReply_BlocksBrokerRecipient(t *testing.T) {
	router, deliverer, _ := newTestRouter(t)

	lead := leads.Lead{
		Contact:  leads.Contact{Name: "Jane Doe"},
		Property: leads.Property{AreaSqm: 180},
	}
	engine := policy.NewEngine(0)
	priced := engine.Apply(lead)

	body := ApproveReplyRequest{
		ThreadID: "t-45",
		Mode:     leads.ReplyNewThreadToCustomer,
		To:       "noreply@leadmail.example",
		Subject:  "Tilbud på rengøring fra Rendetalje",
		Body:     compliantBody(priced),
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/replies/approve", body)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for broker recipient, got %d", rec.Code)
	}
	if len(deliverer.deliveries) != 0 {
		t.Fatal("broker relay must never receive a reply")
	}
}

func TestApproveReply_RepairsAndSends(t *testing.T) {
	router, deliverer, _ := newTestRouter(t)

	lead := leads.Lead{
		Contact:  leads.Contact{Name: "Jane Doe"},
		Property: leads.Property{AreaSqm: 180},
	}
	engine := policy.NewEngine(0)
	priced := engine.Apply(lead)

	body := ApproveReplyRequest{
		ThreadID: "t-46",
		Mode:     leads.ReplyNewThreadToCustomer,
		To:       "jane@x.dk",
		Subject:  "Tilbud på rengøring fra Rendetalje",
		Body:     strings.Replace(compliantBody(priced), "+1 time", "+3 timer", 1),
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/replies/approve", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(deliverer.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliverer.deliveries))
	}
	sent := deliverer.deliveries[0]
	if strings.Contains(sent.Body, "+3 timer") {
		t.Fatal("overtime clause should have been repaired before sending")
	}
	if !strings.Contains(sent.Body, "+1 time") {
		t.Fatal("repaired clause missing from delivered body")
	}
}

func TestIngestThread(t *testing.T) {
	router, _, enqueuer := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/threads/ingest", IngestThreadRequest{ThreadID: "t-99"})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(enqueuer.enqueued) != 1 || enqueuer.enqueued[0] != "t-99" {
		t.Fatalf("expected thread t-99 enqueued, got %v", enqueuer.enqueued)
	}
}

func TestChat_QuoteIntentWithDigest(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chat", ChatRequest{Message: "Hvad koster et tilbud?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Intent.Intent != "QuoteGeneration" {
		t.Fatalf("expected QuoteGeneration intent, got %s", resp.Intent.Intent)
	}
	if !strings.Contains(resp.Reply, "Jane Doe") {
		t.Fatalf("expected lead digest in reply, got: %s", resp.Reply)
	}
}

// compliantBody builds a quote text that satisfies every required check.
func compliantBody(lead leads.Lead) string {
	p := lead.Price
	return strings.Join([]string{
		"Hej Jane,",
		"Boligen er på 180 m², og vi regner med 4-5 arbejdstimer med 2 medarbejdere.",
		"Prisen er 349 kr pr. time pr. person, i alt " + strconv.Itoa(p.MinPrice) + "-" + strconv.Itoa(p.MaxPrice) + " kr.",
		"Du betaler kun faktisk tidsforbrug.",
		"Tager opgaven mere end +1 time ekstra, kontakter vi dig først.",
		"Vi har ledige tidspunkter i næste uge.",
	}, "\n")
}
