package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/postgres"
	"github.com/lib/pq"
)

// schema creates a quotes table. Columns are nullable so a partially filled
// row surfaces as a rejected record rather than a scan error.
const schema = `
CREATE TABLE IF NOT EXISTS %s (
    seq      BIGSERIAL PRIMARY KEY,
    id       TEXT,
    users    TEXT[],
    lines    TEXT[],
    uploaded TEXT
)`

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Postgres reads quotes from a table with id, users, lines and uploaded
// columns, in insertion order.
type Postgres struct {
	client *postgres.Client
	table  string
}

// NewPostgres returns a source reading from table ("quotes" when empty).
func NewPostgres(client *postgres.Client, table string) (*Postgres, error) {
	if table == "" {
		table = "quotes"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", apperrors.ErrInvalidInput, table)
	}
	return &Postgres{client: client, table: table}, nil
}

func (p *Postgres) Name() string { return "postgres:" + p.table }

func (p *Postgres) Fetch(ctx context.Context) ([]quotes.RawRecord, error) {
	query := fmt.Sprintf(`SELECT id, users, lines, uploaded FROM %s ORDER BY seq`, quoteTable(p.table))
	rows, err := p.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", apperrors.ErrSourceUnavailable, p.table, err)
	}
	defer rows.Close()

	var records []quotes.RawRecord
	for rows.Next() {
		var (
			id       sql.NullString
			users    pq.StringArray
			lines    pq.StringArray
			uploaded sql.NullString
		)
		if err := rows.Scan(&id, &users, &lines, &uploaded); err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %v", apperrors.ErrSourceUnavailable, p.table, err)
		}
		var rec quotes.RawRecord
		if id.Valid {
			rec.ID = quotes.RawID(id.String)
		}
		if users != nil {
			u := []string(users)
			rec.Users = &u
		}
		if lines != nil {
			l := []string(lines)
			rec.Lines = &l
		}
		if uploaded.Valid {
			s := uploaded.String
			rec.Uploaded = &s
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %v", apperrors.ErrSourceUnavailable, p.table, err)
	}
	return records, nil
}

// EnsureTable creates the source table if it does not exist.
func (p *Postgres) EnsureTable(ctx context.Context) error {
	if _, err := p.client.DB.ExecContext(ctx, fmt.Sprintf(schema, quoteTable(p.table))); err != nil {
		return fmt.Errorf("creating %s: %w", p.table, err)
	}
	return nil
}

// Seed appends docs to the table in one transaction, uploads rendered in
// RFC 3339 UTC.
func (p *Postgres) Seed(ctx context.Context, docs []*quotes.Document) error {
	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		for _, d := range docs {
			uploaded := d.Uploaded.UTC().Format(time.RFC3339Nano)
			if err := Insert(ctx, tx, p.table, d.ID, d.Users, d.Lines, uploaded); err != nil {
				return err
			}
		}
		return nil
	})
}

// Insert stores one row.
func Insert(ctx context.Context, tx *sql.Tx, table, id string, users, lines []string, uploaded string) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, users, lines, uploaded) VALUES ($1, $2, $3, $4)`, quoteTable(table))
	if _, err := tx.ExecContext(ctx, query, id, pq.Array(users), pq.Array(lines), uploaded); err != nil {
		return fmt.Errorf("inserting quote %s: %w", id, err)
	}
	return nil
}

func quoteTable(table string) string {
	for i := 0; i < len(table); i++ {
		if table[i] == '.' {
			return pq.QuoteIdentifier(table[:i]) + "." + pq.QuoteIdentifier(table[i+1:])
		}
	}
	return pq.QuoteIdentifier(table)
}
