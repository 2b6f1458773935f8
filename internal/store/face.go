package store

import (
	"database/sql"
	"fmt"

	"github.com/ayusman/facedecode/internal/detector"
)

// Face is a stored detection. Rank is its position in the detector output.
type Face struct {
	ID         int64                   `json:"id"`
	RunID      string                  `json:"run_id"`
	Rank       int                     `json:"rank"`
	BBox       detector.Rect           `json:"bbox"`
	Confidence float32                 `json:"confidence"`
	Landmarks  *detector.FaceLandmarks `json:"landmarks,omitempty"`
}

// Detection converts f back to a detector.Detection.
func (f Face) Detection() detector.Detection {
	return detector.Detection{
		BBox:       f.BBox,
		Confidence: f.Confidence,
		Landmarks:  f.Landmarks,
	}
}

// FaceRepository stores the detections of runs.
type FaceRepository struct {
	db *sql.DB
}

// Faces returns the face repository for this store.
func (s *Store) Faces() *FaceRepository {
	return &FaceRepository{db: s.db}
}

// CreateBatch inserts the detections of a run in a single transaction, ranked
// in slice order, and updates the face count on the run.
func (r *FaceRepository) CreateBatch(runID string, dets []detector.Detection) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	faceStmt, err := tx.Prepare(`INSERT INTO faces (run_id, rank, x1, y1, x2, y2, confidence) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer faceStmt.Close()

	lmStmt, err := tx.Prepare(`INSERT INTO face_landmarks (face_id, point_index, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer lmStmt.Close()

	for rank, d := range dets {
		res, err := faceStmt.Exec(runID, rank, d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2, d.Confidence)
		if err != nil {
			return fmt.Errorf("insert face %d: %w", rank, err)
		}
		if d.Landmarks == nil {
			continue
		}

		faceID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for k, p := range d.Landmarks {
			if _, err := lmStmt.Exec(faceID, k, p.X, p.Y); err != nil {
				return fmt.Errorf("insert landmark %d of face %d: %w", k, rank, err)
			}
		}
	}

	result, err := tx.Exec(`UPDATE runs SET face_count = ? WHERE id = ?`, len(dets), runID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// GetByRunID retrieves the faces of a run ordered by rank.
func (r *FaceRepository) GetByRunID(runID string) ([]Face, error) {
	rows, err := r.db.Query(
		`SELECT f.id, f.run_id, f.rank, f.x1, f.y1, f.x2, f.y2, f.confidence,
		        l.point_index, l.x, l.y
		 FROM faces f
		 LEFT JOIN face_landmarks l ON l.face_id = f.id
		 WHERE f.run_id = ?
		 ORDER BY f.rank, l.point_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faces []Face
	for rows.Next() {
		var (
			f          Face
			confidence float64
			point      sql.NullInt64
			x, y       sql.NullInt64
		)
		err := rows.Scan(&f.ID, &f.RunID, &f.Rank, &f.BBox.X1, &f.BBox.Y1, &f.BBox.X2, &f.BBox.Y2, &confidence,
			&point, &x, &y)
		if err != nil {
			return nil, err
		}

		if n := len(faces); n == 0 || faces[n-1].ID != f.ID {
			f.Confidence = float32(confidence)
			faces = append(faces, f)
		}

		if point.Valid {
			last := &faces[len(faces)-1]
			if last.Landmarks == nil {
				last.Landmarks = &detector.FaceLandmarks{}
			}
			last.Landmarks[point.Int64] = detector.PixelPoint{X: int(x.Int64), Y: int(y.Int64)}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return faces, nil
}

// Detections returns the stored detections of a run in rank order.
func (r *FaceRepository) Detections(runID string) ([]detector.Detection, error) {
	faces, err := r.GetByRunID(runID)
	if err != nil {
		return nil, err
	}

	dets := make([]detector.Detection, len(faces))
	for i, f := range faces {
		dets[i] = f.Detection()
	}
	return dets, nil
}
