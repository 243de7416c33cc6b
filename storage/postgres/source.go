package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/semaphoric/vecmig/core"
)

// Count returns the total number of rows in the spec's table.
func (s *Store) Count(ctx context.Context, spec core.SourceSpec) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{spec.Table}.Sanitize())

	var count int
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", spec.Table, err)
	}
	return count, nil
}

// FetchPage returns up to limit rows starting at offset. Rows are ordered by
// the spec's ID column so that resuming at a given offset deterministically
// continues from the same logical position.
func (s *Store) FetchPage(ctx context.Context, spec core.SourceSpec, offset, limit int) ([]*core.SourceRecord, error) {
	columns := selectColumns(spec)
	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2",
		strings.Join(columns, ", "),
		pgx.Identifier{spec.Table}.Sanitize(),
		pgx.Identifier{spec.IDColumn}.Sanitize(),
	)

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch page of %s at offset %d: %w", spec.Table, offset, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []*core.SourceRecord

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		record := &core.SourceRecord{
			Table:  spec.Table,
			Fields: make(map[string]any, len(fields)),
		}
		for i, fd := range fields {
			record.Fields[string(fd.Name)] = values[i]
		}
		if id, ok := record.Fields[spec.IDColumn]; ok && id != nil {
			record.ID = fmt.Sprintf("%v", id)
		}

		records = append(records, record)
	}
	return records, rows.Err()
}

// selectColumns collects the distinct columns the spec needs, ID column first.
func selectColumns(spec core.SourceSpec) []string {
	seen := map[string]bool{spec.IDColumn: true}
	columns := []string{pgx.Identifier{spec.IDColumn}.Sanitize()}

	add := func(names []string) {
		for _, name := range names {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			columns = append(columns, pgx.Identifier{name}.Sanitize())
		}
	}

	if spec.TitleColumn != "" {
		add([]string{spec.TitleColumn})
	}
	add(spec.ContentColumns)
	add(spec.MetadataColumns)

	return columns
}
