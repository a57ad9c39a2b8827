package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            SERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('admin', 'client')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS clients (
	id         SERIAL PRIMARY KEY,
	user_id    INT REFERENCES users(id) ON DELETE SET NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS leads (
	id           SERIAL PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	project_type TEXT NOT NULL DEFAULT '',
	budget_range TEXT NOT NULL DEFAULT '',
	timeline     TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	features     TEXT[] NOT NULL DEFAULT '{}',
	features_raw TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT 'intake_form',
	status       TEXT NOT NULL DEFAULT 'new',
	notes        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);

CREATE TABLE IF NOT EXISTS contact_submissions (
	id                SERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL,
	subject           TEXT NOT NULL DEFAULT '',
	message           TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'new',
	converted_lead_id INT REFERENCES leads(id),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS projects (
	id           SERIAL PRIMARY KEY,
	client_id    INT NOT NULL REFERENCES clients(id),
	lead_id      INT REFERENCES leads(id),
	name         TEXT NOT NULL,
	project_type TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	budget       TEXT NOT NULL DEFAULT '',
	price        NUMERIC(12,2) NOT NULL DEFAULT 0,
	start_date   DATE,
	due_date     DATE,
	progress     INT NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
	features     TEXT[] NOT NULL DEFAULT '{}',
	features_raw TEXT NOT NULL DEFAULT '',
	repo_url     TEXT NOT NULL DEFAULT '',
	preview_url  TEXT NOT NULL DEFAULT '',
	notes        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_projects_client ON projects(client_id);

CREATE TABLE IF NOT EXISTS milestones (
	id           SERIAL PRIMARY KEY,
	project_id   INT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	due_date     DATE,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at TIMESTAMPTZ,
	deliverables TEXT[] NOT NULL DEFAULT '{}',
	sort_order   INT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_milestones_project ON milestones(project_id);

CREATE TABLE IF NOT EXISTS invoices (
	id             SERIAL PRIMARY KEY,
	invoice_number TEXT NOT NULL UNIQUE,
	project_id     INT NOT NULL REFERENCES projects(id),
	client_id      INT NOT NULL REFERENCES clients(id),
	line_items     JSONB NOT NULL DEFAULT '[]',
	amount_total   NUMERIC(12,2) NOT NULL DEFAULT 0,
	amount_paid    NUMERIC(12,2) NOT NULL DEFAULT 0,
	credit_applied NUMERIC(12,2) NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'draft',
	issued_date    DATE,
	due_date       DATE,
	paid_date      DATE,
	notes          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_invoices_project ON invoices(project_id);

CREATE TABLE IF NOT EXISTS message_threads (
	id              SERIAL PRIMARY KEY,
	client_id       INT NOT NULL REFERENCES clients(id),
	project_id      INT REFERENCES projects(id),
	subject         TEXT NOT NULL DEFAULT '',
	last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
	id          SERIAL PRIMARY KEY,
	thread_id   INT NOT NULL REFERENCES message_threads(id) ON DELETE CASCADE,
	sender_type TEXT NOT NULL CHECK (sender_type IN ('admin', 'client')),
	sender_name TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL,
	read_at     TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);

CREATE TABLE IF NOT EXISTS project_files (
	id                 SERIAL PRIMARY KEY,
	project_id         INT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	original_name      TEXT NOT NULL,
	stored_name        TEXT NOT NULL UNIQUE,
	mime_type          TEXT NOT NULL DEFAULT 'application/octet-stream',
	size               BIGINT NOT NULL DEFAULT 0,
	shared_with_client BOOLEAN NOT NULL DEFAULT FALSE,
	uploaded_by        TEXT NOT NULL DEFAULT 'admin',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS outbox_events (
	id             BIGSERIAL PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   BIGINT,
	routing_key    TEXT NOT NULL,
	payload        JSONB NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	retry_count    INT NOT NULL DEFAULT 0,
	next_retry_at  TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(status, next_retry_at);

CREATE TABLE IF NOT EXISTS notification_log (
	id          BIGSERIAL PRIMARY KEY,
	routing_key TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates all tables that do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
