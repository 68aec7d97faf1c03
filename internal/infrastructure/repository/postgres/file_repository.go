package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, project_id, filename, mime_type, storage_path, size_bytes, file_type, status, progress, error_message, analysis_data, created_at, updated_at`

func (r *FileRepository) Create(ctx context.Context, file *domain.ProjectFile) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO project_files (
	id, project_id, filename, mime_type, storage_path, size_bytes, file_type, status, progress, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		file.ID, file.ProjectID, file.Filename, file.MimeType, file.StoragePath, file.Size,
		string(file.Type), string(file.Status), file.Progress, file.Error, file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.ProjectFile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+fileColumns+`
FROM project_files
WHERE id = $1
`, id)

	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get project file", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan project file: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) ListByProject(ctx context.Context, projectID string) ([]domain.ProjectFile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+fileColumns+`
FROM project_files
WHERE project_id = $1
ORDER BY created_at ASC
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.ProjectFile, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) UpdateStatus(ctx context.Context, id string, status domain.FileStatus, progress int, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE project_files
SET status = $2, progress = $3, error_message = $4, updated_at = $5
WHERE id = $1
`, id, string(status), progress, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update project file status: %w", err)
	}
	return requireRow(result, "update project file status", id)
}

func (r *FileRepository) SaveAnalysis(ctx context.Context, id string, data domain.ResearchData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE project_files
SET analysis_data = $2, updated_at = $3
WHERE id = $1
`, id, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(result, "save analysis", id)
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project file: %w", err)
	}
	return requireRow(result, "delete project file", id)
}

func requireRow(result sql.Result, op, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}

type fileScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row fileScanner) (domain.ProjectFile, error) {
	var file domain.ProjectFile
	var fileType, status string
	var analysisRaw []byte
	err := row.Scan(
		&file.ID,
		&file.ProjectID,
		&file.Filename,
		&file.MimeType,
		&file.StoragePath,
		&file.Size,
		&fileType,
		&status,
		&file.Progress,
		&file.Error,
		&analysisRaw,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return domain.ProjectFile{}, err
	}
	file.Type = domain.FileType(fileType)
	file.Status = domain.FileStatus(status)
	if len(analysisRaw) > 0 {
		var data domain.ResearchData
		if err := json.Unmarshal(analysisRaw, &data); err != nil {
			return domain.ProjectFile{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
		file.AnalysisData = &data
	}
	return file, nil
}
