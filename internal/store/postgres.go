package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/model"
)

const linkColumns = `id, url, status, post_time, check_time, title, html_version,
	h1, h2, h3, h4, h5, h6, internal_links, external_links, inaccessible_links, has_login_form`

// Open opens a PostgreSQL connection pool and checks that it answers.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Postgres is a Repository backed by PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a Postgres store over db. The schema must already be
// migrated.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Create inserts one created record per URL with a single statement.
func (p *Postgres) Create(ctx context.Context, urls []string) ([]model.Link, error) {
	rows, err := p.db.QueryContext(ctx,
		`INSERT INTO links (url)
		 SELECT u FROM unnest($1::text[]) WITH ORDINALITY AS t(u, n) ORDER BY n
		 RETURNING `+linkColumns,
		pq.Array(urls),
	)
	if err != nil {
		return nil, fmt.Errorf("insert links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	created, err := scanLinks(rows)
	if err != nil {
		return nil, fmt.Errorf("insert links: %w", err)
	}
	slices.SortFunc(created, func(a, b model.Link) int { return a.ID - b.ID })
	return created, nil
}

// List returns up to limit records after offset, by ascending id, and the total count.
func (p *Postgres) List(ctx context.Context, limit, offset int) ([]model.Link, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM links`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links ORDER BY id ASC LIMIT $1 OFFSET $2`,
		max(limit, 0), max(offset, 0),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	links, err := scanLinks(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	if err := p.attachDetails(ctx, links); err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// Get returns the record with id or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, id int) (model.Link, error) {
	l, err := scanLink(p.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Link{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Link{}, fmt.Errorf("get link %d: %w", id, err)
	}

	links := []model.Link{l}
	if err := p.attachDetails(ctx, links); err != nil {
		return model.Link{}, err
	}
	return links[0], nil
}

// UpdateStatus moves the record to status if the lifecycle allows it.
func (p *Postgres) UpdateStatus(ctx context.Context, id int, status model.Status) (model.Link, error) {
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		current, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.CanTransition(current, status) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, status)
		}
		_, err = tx.ExecContext(ctx, `UPDATE links SET status = $2 WHERE id = $1`, id, string(status))
		return err
	})
	if err != nil {
		return model.Link{}, err
	}
	return p.Get(ctx, id)
}

// ClaimNext locks the oldest created record, skipping rows other workers
// hold, and marks it pending.
func (p *Postgres) ClaimNext(ctx context.Context) (model.Link, bool, error) {
	l, err := scanLink(p.db.QueryRowContext(ctx,
		`UPDATE links SET status = 'pending', check_time = now()
		 WHERE id = (
		     SELECT id FROM links WHERE status = 'created'
		     ORDER BY id FOR UPDATE SKIP LOCKED LIMIT 1
		 )
		 RETURNING `+linkColumns,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Link{}, false, nil
	}
	if err != nil {
		return model.Link{}, false, fmt.Errorf("claim link: %w", err)
	}
	return l, true, nil
}

// SaveResult writes the outcome and details of a record that is still pending.
func (p *Postgres) SaveResult(ctx context.Context, id int, res Result) error {
	if !validResultStatus(res.Status) {
		return fmt.Errorf("%w: result status %s", ErrIllegalTransition, res.Status)
	}

	return p.inTx(ctx, func(tx *sql.Tx) error {
		current, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.CanTransition(current, res.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, res.Status)
		}

		a := res.Analysis
		h := a.Headings
		if _, err := tx.ExecContext(ctx,
			`UPDATE links SET
			     status = $2, check_time = now(), title = $3, html_version = $4,
			     h1 = $5, h2 = $6, h3 = $7, h4 = $8, h5 = $9, h6 = $10,
			     internal_links = $11, external_links = $12, inaccessible_links = $13,
			     has_login_form = $14
			 WHERE id = $1`,
			id, string(res.Status), a.Title, a.HTMLVersion,
			h.H1, h.H2, h.H3, h.H4, h.H5, h.H6,
			a.Internal, a.External, len(a.Inaccessible), a.HasLoginForm,
		); err != nil {
			return fmt.Errorf("save result %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM inaccessible_links WHERE link_id = $1`, id); err != nil {
			return fmt.Errorf("clear details %d: %w", id, err)
		}
		if len(a.Inaccessible) == 0 {
			return nil
		}

		urls := make([]string, len(a.Inaccessible))
		codes := make([]int64, len(a.Inaccessible))
		for i, issue := range a.Inaccessible {
			urls[i] = issue.URL
			codes[i] = int64(issue.StatusCode)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inaccessible_links (link_id, url, status_code)
			 SELECT $1, u, c FROM unnest($2::text[], $3::int[]) WITH ORDINALITY AS t(u, c, n) ORDER BY n`,
			id, pq.Array(urls), pq.Array(codes),
		); err != nil {
			return fmt.Errorf("save details %d: %w", id, err)
		}
		return nil
	})
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func lockStatus(ctx context.Context, tx *sql.Tx, id int) (model.Status, error) {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM links WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("lock link %d: %w", id, err)
	}
	return model.Status(status), nil
}

// attachDetails loads the inaccessible link details of every record in links.
func (p *Postgres) attachDetails(ctx context.Context, links []model.Link) error {
	if len(links) == 0 {
		return nil
	}

	ids := make([]int64, len(links))
	byID := make(map[int]int, len(links))
	for i := range links {
		ids[i] = int64(links[i].ID)
		byID[links[i].ID] = i
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT link_id, url, status_code FROM inaccessible_links
		 WHERE link_id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load details: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var linkID int
		var issue model.LinkIssue
		if err := rows.Scan(&linkID, &issue.URL, &issue.StatusCode); err != nil {
			return fmt.Errorf("scan detail: %w", err)
		}
		if i, ok := byID[linkID]; ok {
			links[i].InaccessibleDetails = append(links[i].InaccessibleDetails, issue)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (model.Link, error) {
	var (
		l         model.Link
		status    string
		postTime  time.Time
		checkTime sql.NullTime
		h         = &l.HeadingsCount
	)
	err := row.Scan(
		&l.ID, &l.URL, &status, &postTime, &checkTime, &l.Title, &l.HTMLVersion,
		&h.H1, &h.H2, &h.H3, &h.H4, &h.H5, &h.H6,
		&l.InternalLinks, &l.ExternalLinks, &l.InaccessibleLinks, &l.HasLoginForm,
	)
	if err != nil {
		return model.Link{}, err
	}

	l.Status = model.Status(status)
	l.PostTime = postTime.UTC().Format(TimeFormat)
	if checkTime.Valid {
		l.CheckTime = checkTime.Time.UTC().Format(TimeFormat)
	}
	l.InaccessibleDetails = []model.LinkIssue{}
	return l, nil
}

func scanLinks(rows *sql.Rows) ([]model.Link, error) {
	links := []model.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
