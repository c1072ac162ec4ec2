package sqlite

import (
	"encoding/json"
	"time"

	"github.com/easel-dev/easel/internal/history"
)

// GenerationModel represents the database row for the generations table.
// Fields map directly to SQL columns with Unix timestamps for time
// values.
type GenerationModel struct {
	ID             int64
	GUID           string
	Model          string
	PositivePrompt string
	NegativePrompt string
	Seed           int64
	Steps          int64
	CfgScale       float64
	SamplerName    string
	Scheduler      string
	Width          int64
	Height         int64
	BatchSize      int64
	HiresFix       bool
	ImagePaths     *string // nullable, JSON encoded
	DurationMS     int64
	CreatedAt      int64  // Unix timestamp
	DeletedAt      *int64 // Unix timestamp, nullable
}

// toGenerationModel converts a domain Generation to a database
// GenerationModel.
func toGenerationModel(g *history.Generation) *GenerationModel {
	m := &GenerationModel{
		ID:             g.ID,
		GUID:           g.GUID,
		Model:          g.Model,
		PositivePrompt: g.PositivePrompt,
		NegativePrompt: g.NegativePrompt,
		Seed:           g.Seed,
		Steps:          int64(g.Steps),
		CfgScale:       g.CfgScale,
		SamplerName:    g.SamplerName,
		Scheduler:      g.Scheduler,
		Width:          int64(g.Width),
		Height:         int64(g.Height),
		BatchSize:      int64(g.BatchSize),
		HiresFix:       g.HiresFix,
		DurationMS:     g.DurationMS,
		CreatedAt:      g.CreatedAt.Unix(),
	}
	if len(g.ImagePaths) > 0 {
		pathsJSON, err := json.Marshal(g.ImagePaths)
		if err == nil {
			paths := string(pathsJSON)
			m.ImagePaths = &paths
		}
	}
	return m
}

// toDomain converts a database GenerationModel to a domain Generation.
func (m *GenerationModel) toDomain() *history.Generation {
	var imagePaths []string
	if m.ImagePaths != nil {
		_ = json.Unmarshal([]byte(*m.ImagePaths), &imagePaths)
	}
	return &history.Generation{
		ID:             m.ID,
		GUID:           m.GUID,
		Model:          m.Model,
		PositivePrompt: m.PositivePrompt,
		NegativePrompt: m.NegativePrompt,
		Seed:           m.Seed,
		Steps:          int(m.Steps),
		CfgScale:       m.CfgScale,
		SamplerName:    m.SamplerName,
		Scheduler:      m.Scheduler,
		Width:          int(m.Width),
		Height:         int(m.Height),
		BatchSize:      int(m.BatchSize),
		HiresFix:       m.HiresFix,
		ImagePaths:     imagePaths,
		DurationMS:     m.DurationMS,
		CreatedAt:      time.Unix(m.CreatedAt, 0),
	}
}
