package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/easel-dev/easel/internal/history"
)

// generationColumns is the list of columns to select for generation
// queries.
const generationColumns = `id, guid, model, positive_prompt, negative_prompt, seed, steps, cfg_scale,
	sampler_name, scheduler, width, height, batch_size, hires_fix, image_paths, duration_ms, created_at, deleted_at`

// generationRepository implements history.Repository using SQLite.
type generationRepository struct {
	db *sql.DB
}

func newGenerationRepository(db *sql.DB) *generationRepository {
	return &generationRepository{db: db}
}

// Ensure generationRepository implements history.Repository.
var _ history.Repository = (*generationRepository)(nil)

// scanGeneration scans a row into a GenerationModel.
func scanGeneration(scanner interface{ Scan(...any) error }) (*GenerationModel, error) {
	var model GenerationModel
	err := scanner.Scan(
		&model.ID, &model.GUID, &model.Model, &model.PositivePrompt, &model.NegativePrompt,
		&model.Seed, &model.Steps, &model.CfgScale,
		&model.SamplerName, &model.Scheduler, &model.Width, &model.Height,
		&model.BatchSize, &model.HiresFix, &model.ImagePaths, &model.DurationMS,
		&model.CreatedAt, &model.DeletedAt,
	)
	return &model, err
}

// Save persists a generation.
// For new generations (ID == 0), inserts a new row and sets the ID.
// For existing generations (ID > 0), updates the existing row.
func (r *generationRepository) Save(gen *history.Generation) error {
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now()
	}
	model := toGenerationModel(gen)

	if gen.ID == 0 {
		result, err := r.db.Exec(
			`INSERT INTO generations (
				guid, model, positive_prompt, negative_prompt, seed, steps, cfg_scale,
				sampler_name, scheduler, width, height, batch_size, hires_fix,
				image_paths, duration_ms, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			model.GUID, model.Model, model.PositivePrompt, model.NegativePrompt,
			model.Seed, model.Steps, model.CfgScale,
			model.SamplerName, model.Scheduler, model.Width, model.Height,
			model.BatchSize, model.HiresFix,
			model.ImagePaths, model.DurationMS, model.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert generation: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		gen.ID = id
		return nil
	}

	_, err := r.db.Exec(
		`UPDATE generations SET
			model = ?, positive_prompt = ?, negative_prompt = ?, seed = ?, steps = ?, cfg_scale = ?,
			sampler_name = ?, scheduler = ?, width = ?, height = ?, batch_size = ?, hires_fix = ?,
			image_paths = ?, duration_ms = ?
		WHERE id = ?`,
		model.Model, model.PositivePrompt, model.NegativePrompt, model.Seed, model.Steps, model.CfgScale,
		model.SamplerName, model.Scheduler, model.Width, model.Height, model.BatchSize, model.HiresFix,
		model.ImagePaths, model.DurationMS,
		model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}
	return nil
}

// FindByGUID retrieves a generation by its GUID.
// Returns history.NotFoundError if no matching generation exists.
// Soft-deleted generations are not returned.
func (r *generationRepository) FindByGUID(guid string) (*history.Generation, error) {
	row := r.db.QueryRow(
		`SELECT `+generationColumns+` FROM generations WHERE guid = ? AND deleted_at IS NULL`,
		guid,
	)
	model, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &history.NotFoundError{GUID: guid}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find generation by guid: %w", err)
	}
	return model.toDomain(), nil
}

// List retrieves generations matching the given filter criteria.
// Results are ordered by created_at descending (newest first).
func (r *generationRepository) List(filter history.ListFilter) ([]*history.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE deleted_at IS NULL`
	var args []any

	if filter.Model != "" {
		query += ` AND model = ?`
		args = append(args, filter.Model)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = history.DefaultListLimit
	}
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var out []*history.Generation
	for rows.Next() {
		model, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}
	return out, nil
}

// Delete performs a soft delete on a generation by setting its deleted_at
// timestamp. Returns history.NotFoundError if no matching generation
// exists.
func (r *generationRepository) Delete(guid string) error {
	result, err := r.db.Exec(
		`UPDATE generations SET deleted_at = ? WHERE guid = ? AND deleted_at IS NULL`,
		time.Now().Unix(), guid,
	)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &history.NotFoundError{GUID: guid}
	}
	return nil
}
