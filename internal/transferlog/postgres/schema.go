package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transfer_records (
	record_id BYTEA PRIMARY KEY,
	direction SMALLINT NOT NULL,
	token BYTEA NOT NULL,
	sender BYTEA NOT NULL,
	recipient BYTEA NOT NULL,
	ref BYTEA NOT NULL,
	amount BYTEA NOT NULL,
	extra_data BYTEA NOT NULL,

	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT record_id_len CHECK (octet_length(record_id) = 32),
	CONSTRAINT direction_range CHECK (direction >= 1 AND direction <= 2),
	CONSTRAINT token_len CHECK (octet_length(token) = 20),
	CONSTRAINT sender_len CHECK (octet_length(sender) = 20),
	CONSTRAINT recipient_len CHECK (octet_length(recipient) = 20),
	CONSTRAINT ref_len CHECK (octet_length(ref) = 32),
	CONSTRAINT amount_len CHECK (octet_length(amount) = 32)
);

CREATE INDEX IF NOT EXISTS transfer_records_direction_idx ON transfer_records (direction, record_id);
CREATE INDEX IF NOT EXISTS transfer_records_token_idx ON transfer_records (token);
`
