package handlers

import (
	"errors"
	"net/http"

	"github.com/credencelab/credence/internal/calibration"
	"github.com/go-chi/chi/v5"
)

type CalibrationHandler struct {
	tracker *calibration.Tracker
}

func NewCalibrationHandler(tracker *calibration.Tracker) *CalibrationHandler {
	return &CalibrationHandler{tracker: tracker}
}

// Report returns the named producer's calibration report, rebuilt from
// the ledger's outcome entries.
func (h *CalibrationHandler) Report(w http.ResponseWriter, r *http.Request) {
	producer := chi.URLParam(r, "producer")
	report, err := h.tracker.Report(r.Context(), producer)
	if err != nil {
		if errors.Is(err, calibration.ErrProducerMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build calibration report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
