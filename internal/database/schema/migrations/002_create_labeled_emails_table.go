package migrations

import "apptrack/server/internal/database/schema"

var CreateLabeledEmailsTable = schema.Migration{
	Version:     2,
	Description: "Create labeled emails table",
	Up: `
		CREATE TABLE IF NOT EXISTS labeled_emails (
			owner String,
			message_id String,
			subject String,
			body String,
			sender String,
			received_date DateTime,
			is_application_email Bool,
			company String,
			position String,
			verified Bool,
			parsed_company String,
			parsed_position String,
			processing_status String,
			updated_at DateTime,
			PRIMARY KEY (owner, message_id)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (owner, message_id)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS labeled_emails`,
}
