package repo

import (
	"context"
	"fmt"
)

// schema — таблицы журнала. Создаются при первом подключении.
const schema = `
CREATE TABLE IF NOT EXISTS provision_runs (
	id          uuid PRIMARY KEY,
	status      text        NOT NULL,
	workdir     text        NOT NULL,
	dry_run     boolean     NOT NULL DEFAULT false,
	failed_step integer,
	exit_code   integer     NOT NULL DEFAULT 0,
	error       text,
	started_at  timestamptz,
	finished_at timestamptz,
	created_at  timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS provision_steps (
	run_id      uuid    NOT NULL REFERENCES provision_runs(id) ON DELETE CASCADE,
	idx         integer NOT NULL,
	name        text    NOT NULL,
	status      text    NOT NULL,
	exit_code   integer NOT NULL DEFAULT 0,
	output      text,
	error       text,
	started_at  timestamptz,
	finished_at timestamptz,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS provision_runs_created_at_idx ON provision_runs (created_at DESC);
`

// EnsureSchema создаёт таблицы журнала, если их нет.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
