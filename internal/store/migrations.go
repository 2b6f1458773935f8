package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per decoded frame
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			frame_index INTEGER NOT NULL DEFAULT 0,
			image_width INTEGER NOT NULL,
			image_height INTEGER NOT NULL,
			scale_factor REAL NOT NULL,
			confidence_threshold REAL NOT NULL,
			iou_threshold REAL NOT NULL,
			min_face_size INTEGER NOT NULL,
			face_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Accepted detections, rank 0 is the most confident
		`CREATE TABLE IF NOT EXISTS faces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			x1 INTEGER NOT NULL,
			y1 INTEGER NOT NULL,
			x2 INTEGER NOT NULL,
			y2 INTEGER NOT NULL,
			confidence REAL NOT NULL,
			UNIQUE(run_id, rank)
		)`,

		`CREATE TABLE IF NOT EXISTS face_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			face_id INTEGER NOT NULL REFERENCES faces(id) ON DELETE CASCADE,
			point_index INTEGER NOT NULL CHECK(point_index BETWEEN 0 AND 4),
			x INTEGER NOT NULL,
			y INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source)`,
		`CREATE INDEX IF NOT EXISTS idx_faces_run_id ON faces(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_face_landmarks_face_id ON face_landmarks(face_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
