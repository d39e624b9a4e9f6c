// Package documents tracks uploaded supporting material. Only metadata lives
// here; content bytes stay in object storage and are never read by the
// backend.
package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

// Document is uploaded-file metadata owned by an assessment.
type Document struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	SizeBytes    int64     `json:"size_bytes"`
	ObjectKey    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repo persists document metadata.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Create inserts a metadata row for a file about to be uploaded.
func (r *Repo) Create(ctx context.Context, assessmentID uuid.UUID, fileName, fileType string, sizeBytes int64, objectKey string) (*Document, error) {
	const q = `
INSERT INTO documents (id, assessment_id, file_name, file_type, size_bytes, object_key)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, assessment_id, file_name, file_type, size_bytes, object_key, created_at;`

	var d Document
	err := r.db.QueryRow(ctx, q, uuid.New(), assessmentID, fileName, fileType, sizeBytes, objectKey).
		Scan(&d.ID, &d.AssessmentID, &d.FileName, &d.FileType, &d.SizeBytes, &d.ObjectKey, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByAssessment returns an assessment's documents, oldest first.
func (r *Repo) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]Document, error) {
	const q = `
SELECT id, assessment_id, file_name, file_type, size_bytes, object_key, created_at
FROM documents
WHERE assessment_id = $1
ORDER BY created_at;`

	rows, err := r.db.Query(ctx, q, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0, 8)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.AssessmentID, &d.FileName, &d.FileType, &d.SizeBytes, &d.ObjectKey, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get returns one document if it belongs to the assessment.
func (r *Repo) Get(ctx context.Context, assessmentID, docID uuid.UUID) (*Document, error) {
	const q = `
SELECT id, assessment_id, file_name, file_type, size_bytes, object_key, created_at
FROM documents
WHERE id = $1 AND assessment_id = $2;`

	var d Document
	err := r.db.QueryRow(ctx, q, docID, assessmentID).
		Scan(&d.ID, &d.AssessmentID, &d.FileName, &d.FileType, &d.SizeBytes, &d.ObjectKey, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}
