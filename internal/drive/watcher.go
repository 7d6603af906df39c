package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// FolderResult aggregates the import of every sheet in a Drive folder.
type FolderResult struct {
	DistributorID    int64                 `json:"distributor_id"`
	FolderID         string                `json:"folder_id"`
	Files            []domain.IngestResult `json:"files"`
	FailedFiles      []string              `json:"failed_files,omitempty"`
	EarliestAffected *time.Time            `json:"earliest_affected,omitempty"`
}

// IngestFolder imports every non-trashed CSV and XLSX file in folderID in
// name order. A file that fails is recorded and the rest still run.
func (s *IngestService) IngestFolder(ctx context.Context, distributorID int64, folderID string) (*FolderResult, error) {
	if s.files == nil {
		return nil, fmt.Errorf("drive is not configured")
	}

	files, err := s.files.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	result := &FolderResult{
		DistributorID: distributorID,
		FolderID:      folderID,
		Files:         make([]domain.IngestResult, 0, len(files)),
	}
	logger := log.With().Int64("distributor_id", distributorID).Str("folder_id", folderID).Logger()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !IsSheet(f.Name) {
			continue
		}

		res, err := s.ingest(ctx, distributorID, f)
		if err != nil {
			logger.Error().Err(err).Str("file", f.Name).Msg("corp exchange ingest: file failed")
			result.FailedFiles = append(result.FailedFiles, f.Name)
			continue
		}

		result.Files = append(result.Files, *res)
		if res.EarliestAffected != nil {
			result.EarliestAffected = earliest(result.EarliestAffected, *res.EarliestAffected)
		}
	}

	logger.Info().
		Int("files", len(result.Files)).
		Int("failed", len(result.FailedFiles)).
		Msg("corp exchange ingest: folder done")

	return result, nil
}
