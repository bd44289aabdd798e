// Package http exposes the lead pipeline over a gin REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TekupDK/tekup-sub017/internal/assemble"
	"github.com/TekupDK/tekup-sub017/internal/intent"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/leads/repository"
	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/internal/policy"
	"github.com/TekupDK/tekup-sub017/internal/quotecheck"
	"github.com/TekupDK/tekup-sub017/platform/apperr"
	"github.com/TekupDK/tekup-sub017/platform/httpkit"
	"github.com/TekupDK/tekup-sub017/platform/logger"
	"github.com/TekupDK/tekup-sub017/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Enqueuer schedules background processing of a thread.
type Enqueuer interface {
	EnqueueProcessThread(ctx context.Context, threadID string) error
}

// LeadLister reads stored lead snapshots for the digest and lookup routes.
type LeadLister interface {
	ListRecent(ctx context.Context, limit int) ([]leads.Lead, error)
	GetByThread(ctx context.Context, threadID string) (leads.Lead, error)
}

// Handler handles HTTP requests for the lead pipeline.
type Handler struct {
	classifier *leads.Classifier
	engine     *policy.Engine
	checker    *quotecheck.Checker
	pipe       *pipeline.Pipeline
	deliverer  pipeline.Deliverer
	enqueuer   Enqueuer
	lister     LeadLister
	val        *validator.Validator
	log        *logger.Logger
}

func NewHandler(classifier *leads.Classifier, engine *policy.Engine, pipe *pipeline.Pipeline, deliverer pipeline.Deliverer, enqueuer Enqueuer, lister LeadLister, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		classifier: classifier,
		engine:     engine,
		checker:    quotecheck.NewChecker(engine.HourlyRate()),
		pipe:       pipe,
		deliverer:  deliverer,
		enqueuer:   enqueuer,
		lister:     lister,
		val:        val,
		log:        log,
	}
}

// Health reports service liveness.
// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	httpkit.OK(c, gin.H{"status": "ok"})
}

// ParseLead classifies and prices a thread without generating a reply.
// POST /api/v1/leads/parse
func (h *Handler) ParseLead(c *gin.Context) {
	var req ParseLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := req.Thread.Validate(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead := h.engine.Apply(h.classifier.Classify(req.Thread))
	httpkit.OK(c, ParseLeadResponse{Lead: lead})
}

// GetLead returns the stored snapshot for a thread.
// GET /api/v1/leads/:threadId
func (h *Handler) GetLead(c *gin.Context) {
	if h.lister == nil {
		httpkit.HandleError(c, apperr.Unavailable("lead store not configured"))
		return
	}

	lead, err := h.lister.GetByThread(c.Request.Context(), c.Param("threadId"))
	if errors.Is(err, repository.ErrNotFound) {
		err = apperr.NotFound("lead not found")
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ParseLeadResponse{Lead: lead})
}

// GenerateReply runs the pipeline over an inline thread without sending and
// returns the validated reply text.
// POST /api/v1/replies/generate
func (h *Handler) GenerateReply(c *gin.Context) {
	var req GenerateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := req.Thread.Validate(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.pipe.Process(c.Request.Context(), req.Thread, false)
	if httpkit.HandleError(c, err) {
		return
	}

	// A caller-supplied budget trims the preview, but never below compliant.
	if req.MaxTokens > 0 && result.ReplyText != "" {
		trimmed := assemble.Assemble([]assemble.Section{
			{Type: "quote", Content: result.ReplyText, Priority: 9},
		}, req.MaxTokens)
		if check := h.checker.Validate(trimmed, &result.Lead); check.Valid {
			result.ReplyText, result.Check = trimmed, check
		}
	}

	httpkit.OK(c, GenerateReplyResponse{Result: result})
}

// ApproveReply sends an operator-approved reply. The text passes compliance
// validation again here; approval in the UI is not a bypass.
// POST /api/v1/replies/approve
func (h *Handler) ApproveReply(c *gin.Context) {
	var req ApproveReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.To == "" {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "to is required")
		return
	}
	if leads.DetectSource(req.To, "") != leads.SourceUnknown {
		httpkit.Error(c, http.StatusUnprocessableEntity, "recipient is a broker relay address", nil)
		return
	}

	repaired := quotecheck.RepairOvertimeClause(req.Body)
	check := h.checker.Validate(repaired.Fixed, nil)
	if !check.Valid {
		httpkit.Error(c, http.StatusUnprocessableEntity, "reply is not compliant", check.Missing)
		return
	}

	err := h.deliverer.Deliver(c.Request.Context(), pipeline.Delivery{
		ThreadID: req.ThreadID,
		Mode:     req.Mode,
		To:       req.To,
		Subject:  req.Subject,
		Body:     repaired.Fixed,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ApproveReplyResponse{Delivered: true, Check: check})
}

// IngestThread enqueues background processing for a thread.
// POST /api/v1/threads/ingest
func (h *Handler) IngestThread(c *gin.Context) {
	var req IngestThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.enqueuer.EnqueueProcessThread(c.Request.Context(), req.ThreadID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"threadId": req.ThreadID, "queued": true})
}

// Chat answers operator questions about the lead inbox. The intent only
// scopes which digest sections are assembled into the answer.
// POST /api/v1/chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	detected := intent.Classify(req.Message)
	reply := h.chatReply(c.Request.Context(), detected, req.MaxTokens)
	httpkit.OK(c, ChatResponse{Intent: detected, Reply: reply})
}

func (h *Handler) chatReply(ctx context.Context, detected intent.Result, maxTokens int) string {
	sections := []assemble.Section{}

	recent, digestErr := h.recentLeads(ctx)
	if digestErr != nil {
		h.log.DatabaseError("chat digest", digestErr)
	}

	switch detected.Intent {
	case intent.QuoteGeneration:
		sections = append(sections, assemble.Section{
			Type:     "hint",
			Content:  "Brug POST /api/v1/replies/generate med tråden for at få et valideret tilbud.",
			Priority: 9,
		})
	case intent.LeadProcessing:
		sections = append(sections, assemble.Section{
			Type:     "hint",
			Content:  "Brug POST /api/v1/leads/parse for at klassificere tråden.",
			Priority: 9,
		})
	case intent.CalendarQuery, intent.Booking:
		sections = append(sections, assemble.Section{
			Type:     "hint",
			Content:  "Ledige tidspunkter hentes fra kalenderen, når et tilbud genereres.",
			Priority: 9,
		})
	default:
		sections = append(sections, assemble.Section{
			Type:     "hint",
			Content:  "Spørg efter leads, tilbud eller ledige tider.",
			Priority: 9,
		})
	}

	if digest := leadDigest(recent); digest != "" {
		sections = append(sections, assemble.Section{Type: "digest", Content: digest, Priority: 5})
	}

	return assemble.Assemble(sections, maxTokens)
}

func (h *Handler) recentLeads(ctx context.Context) ([]leads.Lead, error) {
	if h.lister == nil {
		return nil, nil
	}
	return h.lister.ListRecent(ctx, 5)
}

// leadDigest renders recent leads as one line each.
func leadDigest(items []leads.Lead) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "Seneste leads:")
	for _, lead := range items {
		line := fmt.Sprintf("- %s (%s) %d m², status %s", lead.Contact.Name, lead.Source, lead.Property.AreaSqm, lead.Status)
		if lead.StatusDetail != "" {
			line += ", " + lead.StatusDetail
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
