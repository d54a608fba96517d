package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/pricer/internal/pricing"
)

const quoteTimeLayout = "2006-01-02 15:04:05"

// QuoteInput is a pricing result to be kept as a quote.
type QuoteInput struct {
	PriceID string
	Title   string
	Notes   string
	Result  pricing.Result
}

// QuoteListItem is the summary row shown when listing quotes.
type QuoteListItem struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"createdAt"`
	PriceID    string  `json:"priceId"`
	Title      string  `json:"title"`
	FinalPrice float64 `json:"finalPrice"`
	Currency   string  `json:"currency"`
}

// Quote is a stored pricing snapshot.
type Quote struct {
	QuoteListItem
	Notes  string         `json:"notes"`
	Result pricing.Result `json:"result"`
}

// SaveQuote stores the result and returns the new quote id.
func (s *Store) SaveQuote(ctx context.Context, in QuoteInput) (string, error) {
	payload, err := json.Marshal(in.Result)
	if err != nil {
		return "", fmt.Errorf("encode quote result: %w", err)
	}

	// Version 7 ids grow with time, so they order quotes saved within the same
	// second.
	uid, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate quote id: %w", err)
	}
	id := uid.String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, created_at, price_id, title, notes, final_price, currency, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, s.now().UTC().Format(quoteTimeLayout), in.PriceID, strings.TrimSpace(in.Title), strings.TrimSpace(in.Notes),
		in.Result.FinalPrice, in.Result.Currency, string(payload))
	if err != nil {
		return "", fmt.Errorf("insert quote: %w", err)
	}
	return id, nil
}

// ListQuotes returns quotes newest first. A non-empty query filters on title
// and notes.
func (s *Store) ListQuotes(ctx context.Context, query string) ([]QuoteListItem, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			created_at,
			COALESCE(price_id, ''),
			COALESCE(title, ''),
			final_price,
			currency
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]QuoteListItem, 0)
	for rows.Next() {
		var (
			item      QuoteListItem
			createdAt any
		)
		if err := rows.Scan(&item.ID, &createdAt, &item.PriceID, &item.Title, &item.FinalPrice, &item.Currency); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.CreatedAt = formatCreatedAt(createdAt)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

// GetQuote loads one quote with its full pricing result.
func (s *Store) GetQuote(ctx context.Context, id string) (Quote, error) {
	var (
		q         Quote
		createdAt any
		payload   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, COALESCE(price_id, ''), COALESCE(title, ''), COALESCE(notes, ''), final_price, currency, result_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(&q.ID, &createdAt, &q.PriceID, &q.Title, &q.Notes, &q.FinalPrice, &q.Currency, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("query quote: %w", err)
	}
	q.CreatedAt = formatCreatedAt(createdAt)

	if err := json.Unmarshal([]byte(payload), &q.Result); err != nil {
		return Quote{}, fmt.Errorf("decode quote result: %w", err)
	}
	return q, nil
}

// The sqlite driver hands DATETIME columns back as time.Time when it can
// parse them and as text otherwise.
func formatCreatedAt(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(quoteTimeLayout)
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
