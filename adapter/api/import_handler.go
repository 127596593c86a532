package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/airrdigital/taskmatrix/internal/connector"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/commands"
	"github.com/airrdigital/taskmatrix/internal/matrix/infrastructure/persistence"
)

// ImportHandler handles the import API. Import is invoked with no body; the
// response carries the {imported, skipped} summary.
type ImportHandler struct {
	imp      *commands.ImportTasksHandler
	slack    connector.Connector
	airtable connector.Connector
	logger   *slog.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(imp *commands.ImportTasksHandler, slack, airtable connector.Connector, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{imp: imp, slack: slack, airtable: airtable, logger: logger}
}

// ImportSlack handles POST /api/v1/import/slack
func (h *ImportHandler) ImportSlack(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.slack)
}

// ImportAirtable handles POST /api/v1/import/airtable
func (h *ImportHandler) ImportAirtable(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.airtable)
}

func (h *ImportHandler) run(w http.ResponseWriter, r *http.Request, conn connector.Connector) {
	result, err := h.imp.Handle(r.Context(), conn)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// respondError maps the import error taxonomy onto HTTP statuses:
// missing credentials and an unmigrated store are 503, a failed upstream
// call is 502, anything else is a generic 500.
func (h *ImportHandler) respondError(w http.ResponseWriter, err error) {
	var cfgErr *connector.ConfigError
	var upErr *connector.UpstreamError
	var exhausted *persistence.SchemaExhaustedError

	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusServiceUnavailable, cfgErr.Reason)
	case errors.As(err, &upErr):
		h.logger.Error("import upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, upErr.Error())
	case errors.As(err, &exhausted):
		writeError(w, http.StatusServiceUnavailable,
			"Database not set up yet. Apply the schema migration first.")
	default:
		h.logger.Error("import failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
