package store

// schema contains the SQL statements to create the symgraph database schema.
const schema = `
-- Symbols table: one row per (name, kind)
CREATE TABLE IF NOT EXISTS symbols (
    id               INTEGER PRIMARY KEY,
    name             TEXT NOT NULL,
    kind             TEXT NOT NULL,
    access           TEXT NOT NULL DEFAULT 'none',
    abstraction      TEXT NOT NULL DEFAULT 'none',
    is_static        INTEGER NOT NULL DEFAULT 0,
    is_const         INTEGER NOT NULL DEFAULT 0,
    type             TEXT NOT NULL DEFAULT '',
    scope_file       TEXT NOT NULL DEFAULT '',
    scope_start_line INTEGER NOT NULL DEFAULT 0,
    scope_start_col  INTEGER NOT NULL DEFAULT 0,
    scope_end_line   INTEGER NOT NULL DEFAULT 0,
    scope_end_col    INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_symbols_unique ON symbols(name, kind);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);

-- Declaration locations, a set per symbol
CREATE TABLE IF NOT EXISTS symbol_locations (
    symbol_id  INTEGER NOT NULL,
    file       TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    start_col  INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    end_col    INTEGER NOT NULL,
    PRIMARY KEY (symbol_id, file, start_line, start_col, end_line, end_col),
    FOREIGN KEY (symbol_id) REFERENCES symbols(id)
);

CREATE INDEX IF NOT EXISTS idx_symbol_locations_file ON symbol_locations(file);

-- Distinct formatted declarations (overloads collapse onto one symbol)
CREATE TABLE IF NOT EXISTS symbol_signatures (
    symbol_id INTEGER NOT NULL,
    signature TEXT NOT NULL,
    PRIMARY KEY (symbol_id, signature),
    FOREIGN KEY (symbol_id) REFERENCES symbols(id)
);

-- Edges table: endpoint ids are NULL when the name was never declared
CREATE TABLE IF NOT EXISTS edges (
    id              INTEGER PRIMARY KEY,
    kind            TEXT NOT NULL,
    source_name     TEXT NOT NULL,
    source_tag      TEXT NOT NULL,
    source_id       INTEGER,
    target_name     TEXT NOT NULL,
    target_tag      TEXT NOT NULL,
    target_id       INTEGER,
    site_file       TEXT NOT NULL DEFAULT '',
    site_start_line INTEGER NOT NULL DEFAULT 0,
    site_start_col  INTEGER NOT NULL DEFAULT 0,
    site_end_line   INTEGER NOT NULL DEFAULT 0,
    site_end_col    INTEGER NOT NULL DEFAULT 0,
    access          TEXT NOT NULL DEFAULT 'none',
    dangling        INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (source_id) REFERENCES symbols(id),
    FOREIGN KEY (target_id) REFERENCES symbols(id)
);

CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_dangling ON edges(dangling);

-- Ingest diagnostics
CREATE TABLE IF NOT EXISTS diagnostics (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    code       TEXT NOT NULL,
    event      TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL,
    file       TEXT NOT NULL DEFAULT '',
    start_line INTEGER NOT NULL DEFAULT 0,
    start_col  INTEGER NOT NULL DEFAULT 0,
    end_line   INTEGER NOT NULL DEFAULT 0,
    end_col    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(code);

-- Metadata table for index info
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
