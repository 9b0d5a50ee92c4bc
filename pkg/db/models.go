package db

import (
	"encoding/json"
	"time"
)

const mirrorTable = "zeroframe_mirror_rows"

// mirrorSchema matches migrations/001_mirror.sql.
const mirrorSchema = `
CREATE TABLE IF NOT EXISTS zeroframe_mirror_rows (
	id         BIGSERIAL PRIMARY KEY,
	source     TEXT        NOT NULL,
	site       TEXT        NOT NULL DEFAULT '',
	position   INTEGER     NOT NULL,
	data       JSONB       NOT NULL,
	created    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, position)
);
CREATE INDEX IF NOT EXISTS idx_zeroframe_mirror_rows_site ON zeroframe_mirror_rows (site);
`

// MirrorRow is one stored row of a mirrored query result.
type MirrorRow struct {
	ID       int64           `json:"id"`
	Source   string          `json:"source"`
	Site     string          `json:"site,omitempty"`
	Position int             `json:"position"`
	Data     json.RawMessage `json:"data"`
	Created  time.Time       `json:"created"`
}

// SourceSummary describes the rows held for one source label.
type SourceSummary struct {
	Source  string    `json:"source"`
	Site    string    `json:"site,omitempty"`
	Rows    int       `json:"rows"`
	Updated time.Time `json:"updated"`
}
