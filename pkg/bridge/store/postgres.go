package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping reports pool health for readiness checks.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) ActiveAgentForDomain(ctx context.Context, domain string) (*agent.Config, error) {
	if domain == "" {
		return nil, nil
	}
	const q = `
		SELECT a.id, COALESCE(a.model, ''), COALESCE(a.voice_name, ''), COALESCE(a.system_prompt, '')
		FROM agent a
		JOIN business b ON b.id = a.business_id
		WHERE b.domain = $1 AND a.is_active
		ORDER BY a.updated_at DESC
		LIMIT 1`

	var cfg agent.Config
	err := p.pool.QueryRow(ctx, q, domain).Scan(&cfg.AgentID, &cfg.Model, &cfg.VoiceName, &cfg.SystemPrompt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent lookup for %q: %w", domain, err)
	}
	return &cfg, nil
}

func (p *Postgres) CreateInteraction(ctx context.Context, externalID, tenantDomain string, agentID int64, callerIdentifier string) error {
	const q = `
		INSERT INTO interaction (external_id, tenant_domain, agent_id, customer_identifier, started_at)
		VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, ''), NOW())
		ON CONFLICT (external_id) DO NOTHING`
	if _, err := p.pool.Exec(ctx, q, externalID, tenantDomain, agentID, callerIdentifier); err != nil {
		return fmt.Errorf("create interaction %q: %w", externalID, err)
	}
	return nil
}

func (p *Postgres) EndInteraction(ctx context.Context, externalID, outcome string) error {
	const q = `
		UPDATE interaction
		SET ended_at = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::int,
		    outcome = COALESCE(NULLIF($2, ''), outcome)
		WHERE external_id = $1`
	if _, err := p.pool.Exec(ctx, q, externalID, outcome); err != nil {
		return fmt.Errorf("end interaction %q: %w", externalID, err)
	}
	return nil
}

func (p *Postgres) InsertMessage(ctx context.Context, externalID, role, text string) error {
	const q = `
		INSERT INTO message (interaction_id, role, content)
		SELECT id, $2, $3 FROM interaction WHERE external_id = $1`
	if _, err := p.pool.Exec(ctx, q, externalID, role, text); err != nil {
		return fmt.Errorf("insert message for %q: %w", externalID, err)
	}
	return nil
}
