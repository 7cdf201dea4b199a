package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/credencelab/credence/internal/domain"
	"github.com/credencelab/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	svc *service.ClaimService
}

func NewClaimHandler(svc *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

type createClaimRequest struct {
	ContentRef string           `json:"content_ref"`
	Producer   string           `json:"producer"`
	Confidence confidence.Value `json:"confidence"`
}

func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim := &domain.Claim{
		ContentRef: req.ContentRef,
		Producer:   req.Producer,
		Confidence: req.Confidence,
	}
	if err := h.svc.SubmitClaim(r.Context(), claim); err != nil {
		switch {
		case errors.Is(err, service.ErrContentRefMissing),
			errors.Is(err, service.ErrProducerMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit claim")
		}
		return
	}

	writeJSON(w, http.StatusCreated, claim)
}

func (h *ClaimHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	claim, err := h.svc.GetClaim(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrClaimNotFound) {
			writeError(w, http.StatusNotFound, "claim not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get claim")
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

type createEvidenceRequest struct {
	Source    string     `json:"source"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *ClaimHandler) CreateEvidence(w http.ResponseWriter, r *http.Request) {
	var req createEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev := &domain.Evidence{Source: req.Source, ExpiresAt: req.ExpiresAt}
	if err := h.svc.CreateEvidence(r.Context(), ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

type attachEvidenceRequest struct {
	EvidenceID string `json:"evidence_id"`
}

func (h *ClaimHandler) AttachEvidence(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req attachEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	evidenceID, err := uuid.Parse(req.EvidenceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evidence_id")
		return
	}

	if err := h.svc.AttachEvidence(r.Context(), claimID, evidenceID); err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, service.ErrEvidenceNotFound):
			writeError(w, http.StatusNotFound, "evidence not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to attach evidence")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "attached"})
}

type declareDefeaterRequest struct {
	Kind            string           `json:"kind"`
	AttacksClaim    *string          `json:"attacks_claim,omitempty"`
	AttacksDefeater *string          `json:"attacks_defeater,omitempty"`
	Strength        confidence.Value `json:"strength"`
}

func (h *ClaimHandler) DeclareDefeater(w http.ResponseWriter, r *http.Request) {
	var req declareDefeaterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d := &domain.Defeater{
		Kind:     domain.DefeaterKind(req.Kind),
		Strength: req.Strength,
	}
	if req.AttacksClaim != nil {
		id, err := uuid.Parse(*req.AttacksClaim)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid attacks_claim")
			return
		}
		d.AttacksClaim = &id
	}
	if req.AttacksDefeater != nil {
		id, err := uuid.Parse(*req.AttacksDefeater)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid attacks_defeater")
			return
		}
		d.AttacksDefeater = &id
	}

	if err := h.svc.DeclareDefeater(r.Context(), d); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDefeaterKind),
			errors.Is(err, service.ErrDefeaterTargetCount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrClaimNotFound),
			errors.Is(err, service.ErrDefeaterNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to declare defeater")
		}
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

type verifyOutcomeRequest struct {
	Actual bool `json:"actual"`
}

func (h *ClaimHandler) VerifyOutcome(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req verifyOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, err := h.svc.VerifyOutcome(r.Context(), claimID, req.Actual)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, service.ErrClaimAlreadyVerified):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to verify outcome")
		}
		return
	}

	writeJSON(w, http.StatusOK, claim)
}
