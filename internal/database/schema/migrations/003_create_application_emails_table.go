package migrations

import "apptrack/server/internal/database/schema"

var CreateApplicationEmailsTable = schema.Migration{
	Version:     3,
	Description: "Create application emails table",
	Up: `
		CREATE TABLE IF NOT EXISTS application_emails (
			owner String,
			application_id UUID,
			message_id String,
			subject String,
			sender String,
			date DateTime,
			body String,
			is_follow_up Bool
		) ENGINE = MergeTree()
		ORDER BY (owner, application_id, date)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS application_emails`,
}
