package httpapi

import (
	"net/http"

	"github.com/fableforge/rules-api/internal/orchestrators/usage"
)

type usageResponse struct {
	Scope        string `json:"scope"`
	Date         string `json:"date"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
	Limit        int64  `json:"limit"`
	Remaining    int64  `json:"remaining"`
}

func (h *Handler) getGlobalUsage(w http.ResponseWriter, r *http.Request) {
	h.writeUsage(w, r, "")
}

func (h *Handler) getSessionUsage(w http.ResponseWriter, r *http.Request) {
	h.writeUsage(w, r, r.PathValue("id"))
}

func (h *Handler) writeUsage(w http.ResponseWriter, r *http.Request, sessionID string) {
	out, err := h.usage.Snapshot(r.Context(), &usage.SnapshotInput{SessionID: sessionID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Scope:        out.Scope,
		Date:         out.Date,
		InputTokens:  out.InputTokens,
		OutputTokens: out.OutputTokens,
		TotalTokens:  out.TotalTokens,
		Limit:        out.Limit,
		Remaining:    out.Remaining,
	})
}
