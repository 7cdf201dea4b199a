package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credencelab/credence/internal/confidence"
)

type ConfidenceHandler struct{}

func NewConfidenceHandler() *ConfidenceHandler {
	return &ConfidenceHandler{}
}

// wireExpr is the JSON form of a derivation formula: a leaf names an
// input with "ref", an interior node carries "op" and "args".
type wireExpr struct {
	Ref  string     `json:"ref,omitempty"`
	Op   string     `json:"op,omitempty"`
	Args []wireExpr `json:"args,omitempty"`
}

func (e wireExpr) toExpr() (confidence.Expr, error) {
	if e.Ref != "" {
		if e.Op != "" || len(e.Args) > 0 {
			return nil, errors.New("expression node cannot be both ref and op")
		}
		return confidence.Ref{Name: e.Ref}, nil
	}
	if e.Op == "" {
		return nil, errors.New("expression node needs ref or op")
	}
	args := make([]confidence.Expr, len(e.Args))
	for i, a := range e.Args {
		sub, err := a.toExpr()
		if err != nil {
			return nil, err
		}
		args[i] = sub
	}
	return confidence.Apply{Op: confidence.Combinator(e.Op), Args: args}, nil
}

type deriveRequest struct {
	Formula wireExpr                    `json:"formula"`
	Inputs  map[string]confidence.Value `json:"inputs"`
}

type deriveResponse struct {
	Result confidence.Value `json:"result"`
	Proven bool             `json:"proven"`
}

// Derive evaluates a derivation formula over supplied inputs and returns
// the combined value. The proof token itself never leaves the process;
// only the fact that one was minted is reported.
func (h *ConfidenceHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req deriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	formula, err := req.Formula.toExpr()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := confidence.Derive(formula, req.Inputs)
	if err != nil {
		switch {
		case errors.Is(err, confidence.ErrUnknownInput),
			errors.Is(err, confidence.ErrMalformedFormula):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, deriveResponse{Result: result, Proven: result.Proven()})
}
