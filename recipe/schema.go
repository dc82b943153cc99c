package recipe

// Schema is the complete recipe store schema.
const Schema = `
-- Extraction recipes, one per normalized domain
CREATE TABLE IF NOT EXISTS recipes (
    id              TEXT PRIMARY KEY,
    domain          TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    is_active       INTEGER NOT NULL DEFAULT 1,
    selectors_json  TEXT NOT NULL,
    listing_json    TEXT NOT NULL DEFAULT '{}',
    cleaning_json   TEXT NOT NULL DEFAULT '[]',
    needs_browser   INTEGER NOT NULL DEFAULT 0,
    ocr_capable     INTEGER NOT NULL DEFAULT 0,
    confidence      REAL NOT NULL DEFAULT 0.5,
    is_verified     INTEGER NOT NULL DEFAULT 0,
    usage_count     INTEGER NOT NULL DEFAULT 0,
    success_count   INTEGER NOT NULL DEFAULT 0,
    failure_count   INTEGER NOT NULL DEFAULT 0,
    last_error      TEXT NOT NULL DEFAULT '',
    last_success    INTEGER,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
-- Uniqueness holds among active recipes only: disabled rows stay for
-- their history while a replacement takes over the domain.
CREATE UNIQUE INDEX IF NOT EXISTS idx_recipes_domain_active
    ON recipes(domain) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS idx_recipes_priority
    ON recipes(is_verified DESC, confidence DESC, success_count DESC);

-- Distinct-user confirmations feeding verification
CREATE TABLE IF NOT EXISTS recipe_confirmations (
    recipe_id    TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
    user_id      TEXT NOT NULL,
    confirmed_at INTEGER NOT NULL,
    PRIMARY KEY (recipe_id, user_id)
);

-- Per-call extraction log (observability)
CREATE TABLE IF NOT EXISTS extraction_log (
    id           TEXT PRIMARY KEY,
    recipe_id    TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL,
    strategy     TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    logged_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_log_recipe ON extraction_log(recipe_id, logged_at DESC);
`
