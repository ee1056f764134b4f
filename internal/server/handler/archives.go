package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// ArchiveLister is the view of the trade archiver the control surface needs.
type ArchiveLister interface {
	ListArchives(ctx context.Context) ([]domain.BlobInfo, error)
}

// ArchivesHandler lists trade archive objects in blob storage.
type ArchivesHandler struct {
	archiver ArchiveLister
	logger   *slog.Logger
}

// NewArchivesHandler creates an ArchivesHandler. A nil archiver means blob
// storage is disabled; the handler reports an empty list.
func NewArchivesHandler(archiver ArchiveLister, logger *slog.Logger) *ArchivesHandler {
	return &ArchivesHandler{archiver: archiver, logger: logHandler(logger, "archives")}
}

// ListArchives responds with every trade archive object written so far.
// GET /archives
func (h *ArchivesHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "archives": []domain.BlobInfo{}})
		return
	}

	infos, err := h.archiver.ListArchives(r.Context())
	if err != nil {
		h.logger.Error("list archives failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "listing archives failed")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(infos),
		"archives": infos,
	})
}
