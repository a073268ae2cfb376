// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by Queries.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the application's SQL against a DB.
type Queries struct {
	db      DBTX
	dialect Dialect
	clock   *clock
}

// New creates a Queries bound to db.
func New(db *DB) *Queries {
	return &Queries{db: db.DB, dialect: db.Dialect, clock: db.clock}
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func (q *Queries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteByID removes a row by id and returns the number of rows removed.
func (q *Queries) deleteByID(ctx context.Context, table, id string) (int64, error) {
	return q.exec(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
}

// Order is a validated ORDER BY clause.
type Order struct {
	Column string
	Desc   bool
}

// DefaultOrder lists most recently created rows first.
var DefaultOrder = Order{Column: "created_at", Desc: true}

// ParseOrder parses "column" or "column.desc" / "column.asc".
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return DefaultOrder, nil
	}
	col, dir, _ := strings.Cut(s, ".")
	o := Order{Column: col}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		o.Desc = true
	default:
		return Order{}, fmt.Errorf("invalid order direction %q", dir)
	}
	return o, nil
}

// clause renders the order for a table whose sortable columns are allowed.
// id breaks ties so the order is total.
func (o Order) clause(allowed ...string) (string, error) {
	if o.Column == "" {
		o = DefaultOrder
	}
	for _, col := range allowed {
		if col == o.Column {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			return " ORDER BY " + col + " " + dir + ", id " + dir, nil
		}
	}
	return "", fmt.Errorf("cannot order by %q", o.Column)
}

// clock hands out strictly increasing timestamps so created_at ordering is
// stable even for rows inserted within the same clock tick.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
