package httpapi

import (
	"net/http"

	"github.com/fableforge/rules-api/internal/orchestrators/action"
)

type createCharacterRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

func (h *Handler) createCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.actions.CreateCharacter(r.Context(), &action.CreateCharacterInput{
		PlayerID: req.PlayerID,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, out.Character)
}

func (h *Handler) getCharacter(w http.ResponseWriter, r *http.Request) {
	out, err := h.actions.GetCharacter(r.Context(), &action.GetCharacterInput{
		ID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out.Character)
}
