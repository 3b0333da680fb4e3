package httpapi

import (
	"net/http"

	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/orchestrators/action"
)

type createSessionRequest struct {
	CharacterID string `json:"character_id"`
	Location    string `json:"location,omitempty"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.actions.CreateSession(r.Context(), &action.CreateSessionInput{
		CharacterID: req.CharacterID,
		Location:    req.Location,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, out.Session)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.actions.GetSession(r.Context(), &action.GetSessionInput{
		ID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out.Session)
}

type actionRequest struct {
	ActionID string `json:"action_id,omitempty"`
	Text     string `json:"text"`
}

type actionResponse struct {
	Narration    string                    `json:"narration"`
	Executed     *entities.ExecutedChanges `json:"executed"`
	Outcomes     []entities.AttackOutcome  `json:"outcomes,omitempty"`
	Character    *entities.Character       `json:"character"`
	SessionEnded bool                      `json:"session_ended"`
	Blocked      bool                      `json:"blocked,omitempty"`
	BlockReason  string                    `json:"block_reason,omitempty"`
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.actions.HandleAction(r.Context(), &action.HandleActionInput{
		SessionID: r.PathValue("id"),
		ActionID:  req.ActionID,
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{
		Narration:    out.Narration,
		Executed:     out.Executed,
		Outcomes:     out.Outcomes,
		Character:    out.Character,
		SessionEnded: out.SessionEnded,
		Blocked:      out.Blocked,
		BlockReason:  out.BlockReason,
	})
}
