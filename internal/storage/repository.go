// ABOUTME: Repository interface for health sample storage.
// ABOUTME: The SQLite DB satisfies it and doubles as the export data provider.
package storage

import (
	"context"
	"time"

	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/models"
)

// Repository defines the storage interface for health samples.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	CreateSample(ctx context.Context, s *models.Sample) (bool, error)
	CreateSamples(ctx context.Context, samples []models.Sample) (int, error)
	GetSample(ctx context.Context, idOrPrefix string) (*models.Sample, error)
	ListSamples(ctx context.Context, f SampleFilter) ([]models.Sample, error)
	DeleteSample(ctx context.Context, idOrPrefix string) error
	CountSamples(ctx context.Context) (map[models.SampleType]int, error)

	Fetch(ctx context.Context, st models.SampleType, r models.TimeRange) ([]models.Sample, error)
	OldestSampleDate(ctx context.Context, st models.SampleType) (time.Time, bool, error)

	// Export/Import
	GetAllData(ctx context.Context) (*ExportData, error)
	ImportData(ctx context.Context, data *ExportData) (int, error)

	// Lifecycle
	Close() error
}

var (
	_ Repository      = (*DB)(nil)
	_ export.Provider = (*DB)(nil)
)
