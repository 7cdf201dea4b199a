package handlers

import (
	"net/http"
	"strconv"

	"github.com/credencelab/credence/internal/domain"
	"github.com/credencelab/credence/internal/ledger"
	"github.com/google/uuid"
)

const maxLedgerPage = 500

type LedgerHandler struct {
	store    domain.LedgerStore
	exporter *ledger.Exporter
}

func NewLedgerHandler(store domain.LedgerStore) *LedgerHandler {
	return &LedgerHandler{store: store, exporter: ledger.NewExporter(store)}
}

// Read pages through the ledger: GET /v1/ledger?from=N&limit=M.
func (h *LedgerHandler) Read(w http.ResponseWriter, r *http.Request) {
	from, _ := strconv.ParseUint(r.URL.Query().Get("from"), 10, 64)
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > maxLedgerPage {
		limit = 100
	}

	entries, err := h.store.ReadFrom(r.Context(), from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}

	next := from
	if len(entries) > 0 {
		next = entries[len(entries)-1].Sequence
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"next":    next,
	})
}

// Provenance exports a PROV document for one correlation id, or the
// whole ledger when no id is given.
func (h *LedgerHandler) Provenance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("correlation_id")
	if raw == "" {
		doc, err := h.exporter.Export(r.Context(), 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export provenance")
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	correlationID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid correlation_id")
		return
	}
	doc, err := h.exporter.ExportCorrelation(r.Context(), correlationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export provenance")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
