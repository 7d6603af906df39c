package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 10 << 20

// FolderBrowser resolves and lists Drive folders.
type FolderBrowser interface {
	FileSource
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// Repopulator re-derives summaries from the earliest imported date.
type Repopulator interface {
	PopulateRange(ctx context.Context, distributorID int64, start, end time.Time, stopOnFailure bool) (int, []string, error)
}

type Handler struct {
	browser    FolderBrowser
	ingest     *IngestService
	population Repopulator
	location   *time.Location
}

func NewHandler(browser FolderBrowser, ingest *IngestService, population Repopulator, location *time.Location) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		browser:    browser,
		ingest:     ingest,
		population: population,
		location:   location,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/distributors/{id:[0-9]+}/ingest", h.IngestFile).Methods(http.MethodPost)
	router.HandleFunc("/api/drive/distributors/{id:[0-9]+}/ingest-folder", h.IngestFolder).Methods(http.MethodPost)
	router.HandleFunc("/api/drive/distributors/{id:[0-9]+}/upload", h.Upload).Methods(http.MethodPost)
}

type ingestResponse struct {
	Result      interface{} `json:"result"`
	Repopulated int         `json:"repopulated_days,omitempty"`
	FailedDates []string    `json:"failed_dates,omitempty"`
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	if h.browser == nil {
		writeError(w, http.StatusServiceUnavailable, "drive is not configured")
		return
	}

	query := r.URL.Query()
	folderID := query.Get("folderId")
	if path := query.Get("path"); path != "" {
		var err error
		if folderID, err = h.browser.FindFolderByPath(r.Context(), path); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	files, err := h.browser.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	distributorID, ok := distributorFromPath(w, r)
	if !ok {
		return
	}
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "fileId parameter is required")
		return
	}

	res, err := h.ingest.IngestFile(r.Context(), distributorID, fileID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.respond(w, r, distributorID, res, res.EarliestAffected)
}

func (h *Handler) IngestFolder(w http.ResponseWriter, r *http.Request) {
	distributorID, ok := distributorFromPath(w, r)
	if !ok {
		return
	}

	folderID := r.URL.Query().Get("folderId")
	if path := r.URL.Query().Get("path"); path != "" && h.browser != nil {
		var err error
		if folderID, err = h.browser.FindFolderByPath(r.Context(), path); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if folderID == "" {
		writeError(w, http.StatusBadRequest, "folderId or path parameter is required")
		return
	}

	res, err := h.ingest.IngestFolder(r.Context(), distributorID, folderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.respond(w, r, distributorID, res, res.EarliestAffected)
}

// Upload imports a sheet posted as the multipart field "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	distributorID, ok := distributorFromPath(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field file is required")
		return
	}
	defer file.Close()

	res, err := h.ingest.Import(r.Context(), distributorID, fh.Filename, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.respond(w, r, distributorID, res, res.EarliestAffected)
}

// respond repopulates from the earliest imported date through today when the
// request asks for it with ?repopulate=true.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, distributorID int64, result interface{}, from *time.Time) {
	resp := ingestResponse{Result: result}

	repopulate, _ := strconv.ParseBool(r.URL.Query().Get("repopulate"))
	if repopulate && from != nil && h.population != nil {
		today := inventory.Today(h.location)
		if !from.After(today) {
			done, failed, err := h.population.PopulateRange(r.Context(), distributorID, *from, today, false)
			if err != nil {
				log.Error().Err(err).Int64("distributor_id", distributorID).Msg("corp exchange ingest: repopulation failed")
			}
			resp.Repopulated = done
			resp.FailedDates = failed
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func distributorFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid distributor id")
		return 0, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
