package storage

import (
	"context"

	"genoloc/internal/model"
)

// Store persists locality studies and their pair records.
type Store interface {
	Init(ctx context.Context) error
	SaveStudy(ctx context.Context, study model.StudyRecord) error
	GetStudy(ctx context.Context, id string) (model.StudyRecord, bool, error)
	ListStudies(ctx context.Context) ([]string, error)
	// SavePairs replaces the pair records stored for studyID.
	SavePairs(ctx context.Context, studyID string, records []model.PairRecord) error
	GetPairs(ctx context.Context, studyID string) ([]model.PairRecord, bool, error)
}
