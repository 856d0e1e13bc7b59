package migrations

import "apptrack/server/internal/database/schema"

var CreateApplicationsTable = schema.Migration{
	Version:     1,
	Description: "Create applications table",
	Up: `
		CREATE TABLE IF NOT EXISTS applications (
			id UUID,
			owner String,
			company String,
			company_key String,
			position String,
			applied_date DateTime,
			status String,
			source_message_id String,
			created_at DateTime,
			updated_at DateTime,
			PRIMARY KEY (owner, id)
		) ENGINE = ReplacingMergeTree(updated_at)
		PARTITION BY toYYYYMM(applied_date)
		ORDER BY (owner, id)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS applications`,
}
