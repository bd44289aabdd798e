// Package repository persists lead snapshots so prior customer contact can be
// recognized across threads.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/platform/phone"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot upserts the latest classification of a thread. Reclassifying a
// thread replaces the previous snapshot; created_at is preserved so the
// prior-contact window keys off first contact.
func (r *Repository) SaveSnapshot(ctx context.Context, lead leads.Lead) error {
	var (
		replyMode, replyTo                           *string
		estimatedHours, crewSize, minPrice, maxPrice *int
	)
	if lead.Reply != nil {
		mode := string(lead.Reply.Mode)
		replyMode = &mode
		if lead.Reply.ReplyTo != "" {
			replyTo = &lead.Reply.ReplyTo
		}
	}
	if lead.Price != nil {
		estimatedHours = &lead.Price.EstimatedHours
		crewSize = &lead.Price.CrewSize
		minPrice = &lead.Price.MinPrice
		maxPrice = &lead.Price.MaxPrice
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_snapshots (
			thread_id, subject, source,
			customer_name, customer_email, customer_phone, customer_address,
			area_sqm, rooms, property_type, service_type, price_hint,
			status, status_detail,
			reply_mode, reply_to,
			estimated_hours, crew_size, min_price, max_price,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, now(), now())
		ON CONFLICT (thread_id) DO UPDATE SET
			subject = EXCLUDED.subject,
			source = EXCLUDED.source,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			customer_address = EXCLUDED.customer_address,
			area_sqm = EXCLUDED.area_sqm,
			rooms = EXCLUDED.rooms,
			property_type = EXCLUDED.property_type,
			service_type = EXCLUDED.service_type,
			price_hint = EXCLUDED.price_hint,
			status = EXCLUDED.status,
			status_detail = EXCLUDED.status_detail,
			reply_mode = EXCLUDED.reply_mode,
			reply_to = EXCLUDED.reply_to,
			estimated_hours = EXCLUDED.estimated_hours,
			crew_size = EXCLUDED.crew_size,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			updated_at = now()
	`,
		lead.ThreadID, lead.Subject, string(lead.Source),
		lead.Contact.Name, nullIfEmpty(lead.Contact.Email), nullIfEmpty(phone.NormalizeE164(lead.Contact.Phone)), nullIfEmpty(lead.Contact.Address),
		lead.Property.AreaSqm, lead.Property.Rooms, lead.Property.Type, lead.ServiceType, nullIfEmpty(lead.PriceHint),
		string(lead.Status), nullIfEmpty(lead.StatusDetail),
		replyMode, replyTo,
		estimatedHours, crewSize, minPrice, maxPrice,
	)
	return err
}

// HasRecentContact reports whether the customer email appears on any snapshot
// created within the window. Used to warn before sending a cold quote to a
// customer we already talked to.
func (r *Repository) HasRecentContact(ctx context.Context, email string, window time.Duration) (bool, error) {
	if email == "" {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lead_snapshots
			WHERE lower(customer_email) = lower($1)
			  AND created_at > now() - $2::interval
		)
	`, email, window.String()).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetByThread returns the snapshot for a thread.
func (r *Repository) GetByThread(ctx context.Context, threadID string) (leads.Lead, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` FROM lead_snapshots WHERE thread_id = $1`, threadID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return leads.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListRecent returns the newest snapshots, most recent first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]leads.Lead, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` FROM lead_snapshots ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]leads.Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	return items, rows.Err()
}

const selectColumns = `
	SELECT thread_id, subject, source,
		customer_name, customer_email, customer_phone, customer_address,
		area_sqm, rooms, property_type, service_type, price_hint,
		status, status_detail,
		reply_mode, reply_to,
		estimated_hours, crew_size, min_price, max_price`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (leads.Lead, error) {
	var (
		lead                                         leads.Lead
		source, status                               string
		email, phone, address, priceHint, detail     *string
		replyMode, replyTo                           *string
		estimatedHours, crewSize, minPrice, maxPrice *int
	)
	err := row.Scan(
		&lead.ThreadID, &lead.Subject, &source,
		&lead.Contact.Name, &email, &phone, &address,
		&lead.Property.AreaSqm, &lead.Property.Rooms, &lead.Property.Type, &lead.ServiceType, &priceHint,
		&status, &detail,
		&replyMode, &replyTo,
		&estimatedHours, &crewSize, &minPrice, &maxPrice,
	)
	if err != nil {
		return leads.Lead{}, err
	}

	lead.Source = leads.Source(source)
	lead.Status = leads.Status(status)
	lead.Contact.Email = deref(email)
	lead.Contact.Phone = deref(phone)
	lead.Contact.Address = deref(address)
	lead.PriceHint = deref(priceHint)
	lead.StatusDetail = deref(detail)

	if replyMode != nil {
		lead.Reply = &leads.ReplyStrategy{Mode: leads.ReplyMode(*replyMode), ReplyTo: deref(replyTo)}
	}
	if estimatedHours != nil && crewSize != nil && minPrice != nil && maxPrice != nil {
		lead.Price = &leads.PriceEstimate{
			EstimatedHours: *estimatedHours,
			CrewSize:       *crewSize,
			MinPrice:       *minPrice,
			MaxPrice:       *maxPrice,
		}
	}
	return lead, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
