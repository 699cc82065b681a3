package store

// Both dialects share the same logical layout: three tables, with
// attendance.student_id a weak reference to students (no FK, so historical
// records survive a student deletion).

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS students (
	id                  TEXT PRIMARY KEY,
	full_name           TEXT NOT NULL,
	email               TEXT NOT NULL UNIQUE,
	password_hash       TEXT NOT NULL,
	section             TEXT NOT NULL DEFAULT '',
	grade_level         TEXT NOT NULL DEFAULT '',
	guardian_name       TEXT NOT NULL DEFAULT '',
	guardian_email      TEXT NOT NULL DEFAULT '',
	guardian_phone      TEXT NOT NULL DEFAULT '',
	notify_on_checkin   BOOLEAN NOT NULL DEFAULT TRUE,
	notify_on_checkout  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS teachers (
	id             TEXT PRIMARY KEY,
	full_name      TEXT NOT NULL,
	email          TEXT NOT NULL UNIQUE,
	password_hash  TEXT NOT NULL,
	section        TEXT NOT NULL DEFAULT '',
	grade_level    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance (
	id          TEXT PRIMARY KEY,
	student_id  TEXT NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_student_time ON attendance (student_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_attendance_time ON attendance (timestamp);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS students (
	id                  TEXT PRIMARY KEY,
	full_name           TEXT NOT NULL,
	email               TEXT NOT NULL UNIQUE,
	password_hash       TEXT NOT NULL,
	section             TEXT NOT NULL DEFAULT '',
	grade_level         TEXT NOT NULL DEFAULT '',
	guardian_name       TEXT NOT NULL DEFAULT '',
	guardian_email      TEXT NOT NULL DEFAULT '',
	guardian_phone      TEXT NOT NULL DEFAULT '',
	notify_on_checkin   INTEGER NOT NULL DEFAULT 1,
	notify_on_checkout  INTEGER NOT NULL DEFAULT 1,
	created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS teachers (
	id             TEXT PRIMARY KEY,
	full_name      TEXT NOT NULL,
	email          TEXT NOT NULL UNIQUE,
	password_hash  TEXT NOT NULL,
	section        TEXT NOT NULL DEFAULT '',
	grade_level    TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attendance (
	id          TEXT PRIMARY KEY,
	student_id  TEXT NOT NULL,
	timestamp   DATETIME NOT NULL,
	status      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_student_time ON attendance (student_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_attendance_time ON attendance (timestamp);
`
