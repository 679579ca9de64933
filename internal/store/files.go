package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"ai_builder_server/internal/types"
	"ai_builder_server/internal/utils"

	"github.com/google/uuid"
)

const fileColumns = `id, project_id, name, path, type, content, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (types.SourceFile, error) {
	var f types.SourceFile
	err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Path, &f.Type, &f.Content, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// normalizeNames fills whichever of name and path is missing from the other.
func normalizeNames(name, filePath string) (string, string) {
	filePath = strings.TrimPrefix(strings.TrimSpace(filePath), "./")
	name = strings.TrimSpace(name)
	if filePath == "" {
		filePath = name
	}
	if name == "" {
		name = path.Base(filePath)
	}
	return name, filePath
}

// ListFiles returns the files of a project in insertion order.
func (s *Store) ListFiles(ctx context.Context, projectID string) ([]types.SourceFile, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list files for %s: %w", projectID, err)
	}
	defer rows.Close()

	files := []types.SourceFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetFile returns a single file by id.
func (s *Store) GetFile(ctx context.Context, id string) (*types.SourceFile, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return &f, nil
}

// CreateFile adds a file to a project. The path must be unique within the project.
func (s *Store) CreateFile(ctx context.Context, projectID, name, filePath, content string) (*types.SourceFile, error) {
	name, filePath = normalizeNames(name, filePath)
	if filePath == "" {
		return nil, ErrInvalidFile
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	f, err := s.insertFile(ctx, tx, projectID, name, filePath, content)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit file: %w", err)
	}
	return f, nil
}

func (s *Store) insertFile(ctx context.Context, tx *sql.Tx, projectID, name, filePath, content string) (*types.SourceFile, error) {
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, projectID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check project %s: %w", projectID, err)
	}
	if exists == 0 {
		return nil, ErrProjectNotFound
	}

	if err := pathTaken(ctx, tx, projectID, filePath, ""); err != nil {
		return nil, err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM files WHERE project_id = ?`, projectID).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next file sequence: %w", err)
	}

	now := time.Now().UTC()
	f := &types.SourceFile{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Path:      filePath,
		Type:      utils.DetermineFileType(filePath),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.Name, f.Path, f.Type, f.Content, f.CreatedAt, f.UpdatedAt, seq)
	if err != nil {
		return nil, fmt.Errorf("insert file %s: %w", filePath, err)
	}
	if err := s.touchProject(ctx, tx, projectID, now); err != nil {
		return nil, fmt.Errorf("touch project %s: %w", projectID, err)
	}
	return f, nil
}

// UpdateFile applies the non-nil fields of patch to a file.
func (s *Store) UpdateFile(ctx context.Context, id string, patch types.FilePatch) (*types.SourceFile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	f, err := scanFile(tx.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}

	if patch.Name != nil {
		f.Name = *patch.Name
	}
	if patch.Path != nil {
		f.Path = *patch.Path
	}
	if patch.Content != nil {
		f.Content = *patch.Content
	}
	f.Name, f.Path = normalizeNames(f.Name, f.Path)
	if f.Path == "" {
		return nil, ErrInvalidFile
	}
	if err := pathTaken(ctx, tx, f.ProjectID, f.Path, f.ID); err != nil {
		return nil, err
	}
	f.Type = utils.DetermineFileType(f.Path)
	f.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE files SET name = ?, path = ?, type = ?, content = ?, updated_at = ? WHERE id = ?`,
		f.Name, f.Path, f.Type, f.Content, f.UpdatedAt, f.ID)
	if err != nil {
		return nil, fmt.Errorf("update file %s: %w", id, err)
	}
	if err := s.touchProject(ctx, tx, f.ProjectID, f.UpdatedAt); err != nil {
		return nil, fmt.Errorf("touch project %s: %w", f.ProjectID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit file: %w", err)
	}
	return &f, nil
}

// pathTaken returns ErrPathTaken when another file of the project, other
// than exceptID, already uses filePath.
func pathTaken(ctx context.Context, tx *sql.Tx, projectID, filePath, exceptID string) error {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE project_id = ? AND path = ? AND id <> ?`,
		projectID, filePath, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check path %s: %w", filePath, err)
	}
	if n > 0 {
		return ErrPathTaken
	}
	return nil
}

// DeleteFile removes a file.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ReplaceFiles upserts files by path: existing paths get new content, new
// paths are appended. Files not mentioned are left alone. Returns the
// number of files written.
func (s *Store) ReplaceFiles(ctx context.Context, projectID string, files []types.SourceFile) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for _, in := range files {
		name, filePath := normalizeNames(in.Name, in.Path)
		if filePath == "" {
			continue
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE files SET name = ?, content = ?, type = ?, updated_at = ? WHERE project_id = ? AND path = ?`,
			name, in.Content, utils.DetermineFileType(filePath), now, projectID, filePath)
		if err != nil {
			return 0, fmt.Errorf("update file %s: %w", filePath, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written++
			continue
		}
		if _, err := s.insertFile(ctx, tx, projectID, name, filePath, in.Content); err != nil {
			return 0, err
		}
		written++
	}

	if err := s.touchProject(ctx, tx, projectID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("touch project %s: %w", projectID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit files: %w", err)
	}
	return written, nil
}
