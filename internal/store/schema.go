package store

const Schema = `
CREATE TABLE IF NOT EXISTS shows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pid TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	episode TEXT NOT NULL DEFAULT '',
	broadcast_date DATETIME,
	duration INTEGER NOT NULL DEFAULT 0,
	download_path TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	metadata TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_shows_status ON shows(status);
CREATE INDEX IF NOT EXISTS idx_shows_broadcast_date ON shows(broadcast_date);

CREATE TABLE IF NOT EXISTS transcriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	show_id INTEGER NOT NULL,
	path TEXT NOT NULL,
	format TEXT NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	speakers INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE,
	UNIQUE (show_id, format)
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL UNIQUE,
	task_type TEXT NOT NULL,
	show_id INTEGER,
	status TEXT NOT NULL,
	progress REAL NOT NULL DEFAULT 0,
	result TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE SET NULL
);

-- Prevent duplicate active tasks for the same show and type
CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_active_show ON tasks(show_id, task_type)
WHERE status IN ('pending', 'in_progress');

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_type_status ON tasks(task_type, status);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
