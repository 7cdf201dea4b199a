package handlers

import (
	"net/http"

	"github.com/credencelab/credence/internal/service"
)

type ResolutionHandler struct {
	svc *service.ResolutionService
}

func NewResolutionHandler(svc *service.ResolutionService) *ResolutionHandler {
	return &ResolutionHandler{svc: svc}
}

// Run triggers a full resolution pass over the defeater graph.
func (h *ResolutionHandler) Run(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.svc.ResolveAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
