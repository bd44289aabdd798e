package http

import (
	"github.com/TekupDK/tekup-sub017/internal/intent"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/mail"
	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/internal/quotecheck"
)

// ParseLeadRequest wraps a raw thread for classification.
type ParseLeadRequest struct {
	Thread mail.RawThread `json:"thread" validate:"required"`
}

// ParseLeadResponse returns the classified, priced lead.
type ParseLeadResponse struct {
	Lead leads.Lead `json:"lead"`
}

// GenerateReplyRequest previews the reply the pipeline would send.
type GenerateReplyRequest struct {
	Thread    mail.RawThread `json:"thread" validate:"required"`
	MaxTokens int            `json:"maxTokens" validate:"gte=0"`
}

// GenerateReplyResponse carries the validated reply and its compliance state.
type GenerateReplyResponse struct {
	Result pipeline.Result `json:"result"`
}

// ApproveReplyRequest sends an operator-approved reply. The text is
// re-validated before sending regardless of what the operator saw.
type ApproveReplyRequest struct {
	ThreadID string          `json:"threadId" validate:"required"`
	Mode     leads.ReplyMode `json:"mode" validate:"required"`
	To       string          `json:"to" validate:"omitempty,email"`
	Subject  string          `json:"subject" validate:"required"`
	Body     string          `json:"body" validate:"required"`
}

// ApproveReplyResponse reports the outcome of an approval.
type ApproveReplyResponse struct {
	Delivered bool              `json:"delivered"`
	Check     quotecheck.Result `json:"check"`
}

// IngestThreadRequest enqueues background processing for a thread.
type IngestThreadRequest struct {
	ThreadID string `json:"threadId" validate:"required"`
}

// ChatRequest is one operator chat turn.
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	MaxTokens int    `json:"maxTokens" validate:"gte=0"`
}

// ChatResponse returns the detected intent and an assembled status answer.
type ChatResponse struct {
	Intent intent.Result `json:"intent"`
	Reply  string        `json:"reply"`
}
