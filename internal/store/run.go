package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Run records one decoded frame and the parameters it was decoded with.
type Run struct {
	ID                  string    `json:"id"`
	Source              string    `json:"source"`
	FrameIndex          int       `json:"frame_index"`
	ImageWidth          int       `json:"image_width"`
	ImageHeight         int       `json:"image_height"`
	ScaleFactor         float32   `json:"scale_factor"`
	ConfidenceThreshold float32   `json:"confidence_threshold"`
	IOUThreshold        float32   `json:"iou_threshold"`
	MinFaceSize         int       `json:"min_face_size"`
	FaceCount           int       `json:"face_count"`
	CreatedAt           time.Time `json:"created_at"`
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

const runColumns = `id, source, frame_index, image_width, image_height, scale_factor,
	confidence_threshold, iou_threshold, min_face_size, face_count, created_at`

// Create inserts a new run. A random ID is assigned when run.ID is empty.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.FrameIndex, run.ImageWidth, run.ImageHeight, run.ScaleFactor,
		run.ConfidenceThreshold, run.IOUThreshold, run.MinFaceSize, run.FaceCount, run.CreatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var scale, conf, iou float64

	err := row.Scan(&run.ID, &run.Source, &run.FrameIndex, &run.ImageWidth, &run.ImageHeight, &scale,
		&conf, &iou, &run.MinFaceSize, &run.FaceCount, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	run.ScaleFactor = float32(scale)
	run.ConfidenceThreshold = float32(conf)
	run.IOUThreshold = float32(iou)
	return run, nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves runs, most recent first. A limit of 0 returns all runs.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and, through cascading, its faces.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
