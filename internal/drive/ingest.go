package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// FileSource is the part of the Drive client the ingest depends on.
type FileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// IngestService imports corporation exchange sheets into corp_exchanges.
type IngestService struct {
	files FileSource
	repo  repository.CorpExchangeRepository
}

func NewIngestService(files FileSource, repo repository.CorpExchangeRepository) *IngestService {
	return &IngestService{
		files: files,
		repo:  repo,
	}
}

// Import parses one sheet and upserts its rows for distributorID. Lines with
// bad values or unknown cylinder types are skipped and counted.
func (s *IngestService) Import(ctx context.Context, distributorID int64, name string, r io.Reader) (*domain.IngestResult, error) {
	records, err := ReadRecords(name, r)
	if err != nil {
		return nil, err
	}

	rows, rowErrors, err := ParseExchangeRows(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	logger := log.With().Int64("distributor_id", distributorID).Str("file", name).Logger()
	for _, re := range rowErrors {
		logger.Warn().Int("line", re.Line).Str("reason", re.Reason).Msg("corp exchange ingest: skipping line")
	}

	result := &domain.IngestResult{FileName: name, RowsSkipped: len(rowErrors)}

	typeIDs := make(map[string]int64)
	exchanges := make([]domain.CorpExchange, 0, len(rows))
	for _, row := range rows {
		typeID, ok := typeIDs[row.CylinderType]
		if !ok {
			typeID, err = s.repo.ResolveCylinderTypeID(ctx, distributorID, row.CylinderType)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn().Int("line", row.Line).Str("cylinder_type", row.CylinderType).Msg("corp exchange ingest: unknown cylinder type")
				result.RowsSkipped++
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolve cylinder type %s: %w", row.CylinderType, err)
			}
			typeIDs[row.CylinderType] = typeID
		}

		exchanges = append(exchanges, domain.CorpExchange{
			DistributorID:  distributorID,
			CylinderTypeID: typeID,
			ExchangeDate:   row.Date,
			Reference:      row.Reference,
			ReceivedFulls:  row.ReceivedFulls,
			SentFulls:      row.SentFulls,
			SentEmpties:    row.SentEmpties,
		})
		result.EarliestAffected = earliest(result.EarliestAffected, row.Date)
	}

	written, err := s.repo.UpsertCorpExchanges(ctx, exchanges)
	if err != nil {
		return nil, fmt.Errorf("store corp exchanges from %s: %w", name, err)
	}
	result.RowsImported = written
	if written == 0 {
		result.EarliestAffected = nil
	}

	logger.Info().
		Int("imported", result.RowsImported).
		Int("skipped", result.RowsSkipped).
		Msg("corp exchange ingest: file done")

	return result, nil
}

// IngestFile downloads a Drive file and imports it.
func (s *IngestService) IngestFile(ctx context.Context, distributorID int64, fileID string) (*domain.IngestResult, error) {
	if s.files == nil {
		return nil, fmt.Errorf("drive is not configured")
	}

	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, distributorID, file)
}

func (s *IngestService) ingest(ctx context.Context, distributorID int64, file *File) (*domain.IngestResult, error) {
	if !IsSheet(file.Name) {
		return nil, fmt.Errorf("file %s is not a csv or xlsx sheet: %w", file.Name, domain.ErrInvalidInput)
	}

	// 1. Stream the download into the parser
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.files.DownloadFile(ctx, file.ID, pw))
	}()
	defer pr.Close()

	// 2. Parse and store
	return s.Import(ctx, distributorID, file.Name, pr)
}

func earliest(current *time.Time, t time.Time) *time.Time {
	if current == nil || t.Before(*current) {
		return &t
	}
	return current
}
