package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"igfollowers/pkg/collector"
)

const defaultBatchSize = 200

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB is the subset of *pgxpool.Pool the sink needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresSink stores followers in <schema>.followers
type PostgresSink struct {
	db        DB
	schema    string
	batchSize int
	ready     bool
}

// OpenPool connects to dsn. viaBouncer switches to the simple protocol for pgbouncer.
func OpenPool(ctx context.Context, dsn string, maxConns int, viaBouncer bool) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)
	if viaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// NewPostgresSink wraps db. An empty schema means "public".
func NewPostgresSink(db DB, schema string, batchSize int) (*PostgresSink, error) {
	if schema == "" {
		schema = "public"
	}
	if !schemaName.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PostgresSink{db: db, schema: schema, batchSize: batchSize}, nil
}

func (s *PostgresSink) table(name string) string {
	return fmt.Sprintf(`"%s".%s`, s.schema, name)
}

// EnsureSchema creates the schema and tables if they are missing
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if s.ready {
		return nil
	}

	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, s.schema),
		`CREATE TABLE IF NOT EXISTS ` + s.table("followers") + ` (
			user_id         TEXT        NOT NULL,
			pk              TEXT        NOT NULL,
			username        TEXT        NOT NULL,
			full_name       TEXT,
			is_private      BOOLEAN     NOT NULL DEFAULT FALSE,
			is_verified     BOOLEAN     NOT NULL DEFAULT FALSE,
			profile_pic_url TEXT,
			scraped_at      TIMESTAMPTZ NOT NULL,
			run_id          TEXT        NOT NULL,
			PRIMARY KEY (user_id, pk)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + s.table("collection_runs") + ` (
			run_id          TEXT PRIMARY KEY,
			user_id         TEXT        NOT NULL,
			mode            TEXT        NOT NULL,
			state           TEXT        NOT NULL,
			reason          TEXT,
			total_followers INTEGER     NOT NULL,
			pages           INTEGER     NOT NULL,
			events          INTEGER     NOT NULL,
			elapsed_ms      BIGINT      NOT NULL,
			scraped_at      TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.ready = true
	return nil
}

// Write stores the run. Followers already known for the user are left untouched.
func (s *PostgresSink) Write(ctx context.Context, res *collector.Result) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	if _, err := s.InsertFollowers(ctx, res); err != nil {
		return err
	}

	sum := res.Summary()
	_, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table("collection_runs")+`
		(run_id, user_id, mode, state, reason, total_followers, pages, events, elapsed_ms, scraped_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (run_id) DO NOTHING`,
		sum.RunID, sum.UserID, string(sum.Mode), sum.State, sum.Reason,
		sum.TotalFollowers, sum.Pages, sum.Events, sum.ElapsedMS, sum.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// InsertFollowers batch-inserts res.Records and returns the number of new rows
func (s *PostgresSink) InsertFollowers(ctx context.Context, res *collector.Result) (int, error) {
	rows := res.Records
	total := 0
	table := s.table("followers")

	for i := 0; i < len(rows); i += s.batchSize {
		j := i + s.batchSize
		if j > len(rows) {
			j = len(rows)
		}

		b := &pgx.Batch{}
		for _, r := range rows[i:j] {
			b.Queue(
				`INSERT INTO `+table+`
				(user_id, pk, username, full_name, is_private, is_verified, profile_pic_url, scraped_at, run_id)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				ON CONFLICT (user_id, pk) DO NOTHING`,
				res.UserID, r.PK, r.Username, r.FullName, r.IsPrivate, r.IsVerified,
				r.ProfilePicURL, r.ScrapedAt, res.RunID,
			)
		}

		br := s.db.SendBatch(ctx, b)
		for k := 0; k < b.Len(); k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, fmt.Errorf("insert followers: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("insert followers: %w", err)
		}
	}
	return total, nil
}
