package store

// Schema v1 - catalog tables
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Composers (Open Opus composer id when known)
CREATE TABLE IF NOT EXISTS person (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  open_opus_id INTEGER UNIQUE
);

CREATE TABLE IF NOT EXISTS genre (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL
);

-- Tonality, e.g. "D minor"
CREATE TABLE IF NOT EXISTS musical_key (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS instrument (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS work (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  bwv_id INTEGER,
  bwv_full TEXT UNIQUE,
  bwv_norm TEXT,
  title TEXT NOT NULL CHECK (length(trim(title)) > 0),
  alt_titles TEXT,
  genre_id INTEGER REFERENCES genre(id) ON DELETE SET NULL,
  key_id INTEGER REFERENCES musical_key(id) ON DELETE SET NULL,
  opus_or_collection TEXT,
  duration_est INTEGER,
  date_comp TEXT,
  notes TEXT CHECK (notes IS NULL OR length(notes) <= 512),
  sources TEXT,
  open_opus_id INTEGER UNIQUE,
  composer_id INTEGER REFERENCES person(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_work_bwv_id ON work(bwv_id);
CREATE INDEX IF NOT EXISTS idx_work_bwv_norm ON work(bwv_norm);
CREATE INDEX IF NOT EXISTS idx_work_title ON work(title COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_work_genre_id ON work(genre_id);
CREATE INDEX IF NOT EXISTS idx_work_key_id ON work(key_id);

-- Many-to-many: work <-> instrument
CREATE TABLE IF NOT EXISTS work_instrumentation (
  work_id INTEGER NOT NULL REFERENCES work(id) ON DELETE CASCADE,
  instrument_id INTEGER NOT NULL REFERENCES instrument(id) ON DELETE CASCADE,
  PRIMARY KEY (work_id, instrument_id)
);

CREATE INDEX IF NOT EXISTS idx_work_instrumentation_instrument ON work_instrumentation(instrument_id);
`

// Schema v2 - full-text index over the searchable work columns.
// External content table; the triggers keep it in step with work.
const schemaV2 = `
CREATE VIRTUAL TABLE IF NOT EXISTS work_fts USING fts5(
  bwv_full,
  title,
  alt_titles,
  opus_or_collection,
  notes,
  content='work',
  content_rowid='id',
  tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS work_fts_ai AFTER INSERT ON work BEGIN
  INSERT INTO work_fts(rowid, bwv_full, title, alt_titles, opus_or_collection, notes)
  VALUES (new.id, new.bwv_full, new.title, new.alt_titles, new.opus_or_collection, new.notes);
END;

CREATE TRIGGER IF NOT EXISTS work_fts_ad AFTER DELETE ON work BEGIN
  INSERT INTO work_fts(work_fts, rowid, bwv_full, title, alt_titles, opus_or_collection, notes)
  VALUES ('delete', old.id, old.bwv_full, old.title, old.alt_titles, old.opus_or_collection, old.notes);
END;

CREATE TRIGGER IF NOT EXISTS work_fts_au AFTER UPDATE ON work BEGIN
  INSERT INTO work_fts(work_fts, rowid, bwv_full, title, alt_titles, opus_or_collection, notes)
  VALUES ('delete', old.id, old.bwv_full, old.title, old.alt_titles, old.opus_or_collection, old.notes);
  INSERT INTO work_fts(rowid, bwv_full, title, alt_titles, opus_or_collection, notes)
  VALUES (new.id, new.bwv_full, new.title, new.alt_titles, new.opus_or_collection, new.notes);
END;

INSERT INTO work_fts(work_fts) VALUES ('rebuild');
`
