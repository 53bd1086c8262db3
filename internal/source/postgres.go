package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/vsearch-labs/vsearch/internal/index"
	"github.com/vsearch-labs/vsearch/pkg/postgres"
)

// Postgres streams records out of the external record store with a single
// ordered sequential scan.
type Postgres struct {
	client *postgres.Client
	table  string
	rows   *sql.Rows
}

// OpenPostgres starts the sequential scan over the record table.
func OpenPostgres(ctx context.Context, client *postgres.Client, table string) (*Postgres, error) {
	query := fmt.Sprintf(`SELECT id, content FROM %s ORDER BY id`, table)
	rows, err := client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scanning record table %s: %w", table, err)
	}
	return &Postgres{client: client, table: table, rows: rows}, nil
}

// Next implements Reader.
func (p *Postgres) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return Record{}, fmt.Errorf("reading record row: %w", err)
		}
		return Record{}, io.EOF
	}
	var (
		id   int64
		text string
	)
	if err := p.rows.Scan(&id, &text); err != nil {
		return Record{}, fmt.Errorf("scanning record row: %w", err)
	}
	return Record{ID: index.DocID(id), Text: text}, nil
}

// TotalDocs implements Counter using the record store's own count, which is
// authoritative over anything derived during the build.
func (p *Postgres) TotalDocs(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(id)+1, 0) FROM %s`, p.table)
	var total int
	if err := p.client.DB.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting records in %s: %w", p.table, err)
	}
	return total, nil
}

// Close implements Reader.
func (p *Postgres) Close() error {
	return p.rows.Close()
}
