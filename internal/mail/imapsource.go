package mail

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	imap "github.com/BrianLeishman/go-imap"

	"github.com/TekupDK/tekup-sub017/platform/logger"
)

var replyPrefixRegex = regexp.MustCompile(`(?i)^(?:(?:re|fwd|vs|sv)\s*:\s*)+`)

// imapConn is the subset of *imap.Dialer the source uses.
type imapConn interface {
	GetUIDs(search string) ([]int, error)
	GetEmails(uids ...int) (map[int]*imap.Email, error)
	Close() error
}

// IMAPSource reads threads from an IMAP folder. Messages are grouped into
// threads by normalized subject, the way the inbox itself displays them.
//
// The underlying connection carries one command at a time, so every fetch
// holds mu for the duration. The poller and the task workers share a single
// source.
type IMAPSource struct {
	mu   sync.Mutex
	conn imapConn
	log  *logger.Logger
}

func NewIMAPSource(host string, port int, username, password, folder string, log *logger.Logger) (*IMAPSource, error) {
	dialer, err := imap.New(username, password, host, port)
	if err != nil {
		return nil, fmt.Errorf("connect imap %s:%d: %w", host, port, err)
	}
	if err := dialer.SelectFolder(folder); err != nil {
		_ = dialer.Close()
		return nil, fmt.Errorf("select folder %q: %w", folder, err)
	}
	return &IMAPSource{conn: dialer, log: log}, nil
}

func (s *IMAPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// FetchThreads returns every thread in the folder, messages in chronological
// order.
func (s *IMAPSource) FetchThreads(ctx context.Context) ([]RawThread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	uids, err := s.conn.GetUIDs("ALL")
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("list uids: %w", err)
	}
	if len(uids) == 0 {
		s.mu.Unlock()
		return nil, nil
	}

	emails, err := s.conn.GetEmails(uids...)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("fetch emails: %w", err)
	}

	byThread := make(map[string]*RawThread)
	for _, email := range emails {
		if email == nil {
			continue
		}
		key := ThreadKey(email.Subject)
		subject := strings.TrimSpace(email.Subject)
		thread, ok := byThread[key]
		if !ok {
			thread = &RawThread{ID: key, Subject: subject}
			byThread[key] = thread
		} else if replyPrefixRegex.MatchString(thread.Subject) && !replyPrefixRegex.MatchString(subject) {
			// Prefer the bare subject over its "Re:" form.
			thread.Subject = subject
		}
		thread.Messages = append(thread.Messages, RawMessage{
			Sender:   formatSender(email.From),
			SentAt:   email.Sent,
			BodyText: BodyText(email.Text, email.HTML),
		})
	}

	threads := make([]RawThread, 0, len(byThread))
	for _, thread := range byThread {
		sort.Slice(thread.Messages, func(i, j int) bool {
			return thread.Messages[i].SentAt.Before(thread.Messages[j].SentAt)
		})
		threads = append(threads, *thread)
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].ID < threads[j].ID })

	s.log.Debug("fetched imap threads", "count", len(threads), "messages", len(emails))
	return threads, nil
}

// Thread returns a single thread by its ID.
func (s *IMAPSource) Thread(ctx context.Context, threadID string) (RawThread, error) {
	threads, err := s.FetchThreads(ctx)
	if err != nil {
		return RawThread{}, err
	}
	for _, thread := range threads {
		if thread.ID == threadID {
			return thread, nil
		}
	}
	return RawThread{}, fmt.Errorf("thread %q not found", threadID)
}

// ThreadKey normalizes a subject into a stable thread identifier: reply and
// forward prefixes stripped, whitespace collapsed, lowercased.
func ThreadKey(subject string) string {
	key := replyPrefixRegex.ReplaceAllString(strings.TrimSpace(subject), "")
	key = strings.Join(strings.Fields(key), " ")
	key = strings.ToLower(key)
	if key == "" {
		return "(no subject)"
	}
	return key
}

// formatSender renders a go-imap address map as a From header.
func formatSender(from imap.EmailAddresses) string {
	for addr, name := range from {
		if name != "" {
			return fmt.Sprintf("%s <%s>", name, addr)
		}
		return addr
	}
	return ""
}
