package handlers

import (
	"bytes"
	"net/http"

	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/export"
	"github.com/andrewpaige1/prepass-api/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) GetFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cards, err := h.Store.ListFlashcards(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// UpdateFlashcardStrength grades one card outside of a study session.
func (h *Handler) UpdateFlashcardStrength(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	flashcardID := r.PathValue("flashcardID")
	if flashcardID == "" {
		writeError(w, http.StatusBadRequest, "Flashcard ID is required")
		return
	}

	var req struct {
		Strength string `json:"strength"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	strength, valid := models.ParseStrength(req.Strength)
	if !valid {
		writeError(w, http.StatusBadRequest, "Strength must be weak, okay or strong")
		return
	}

	card, err := h.Store.UpdateFlashcardStrength(r.Context(), userID, flashcardID, strength)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ExportFlashcards downloads the user's cards as an Excel workbook.
func (h *Handler) ExportFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cards, err := h.Store.ListFlashcards(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteFlashcards(&buf, cards); err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="prepass-flashcards.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ImportFlashcards adds the cards of an uploaded workbook as new weak cards.
func (h *Handler) ImportFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Limits.MaxFileBytes+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A workbook is required in the file field")
		return
	}
	defer file.Close()

	imported, err := export.ReadFlashcards(file)
	if err != nil {
		h.respondErr(w, r, apperr.Validation("File is not a readable Excel workbook"))
		return
	}
	if len(imported.Drafts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "No flashcards found in workbook",
			"skipped": imported.Skipped,
		})
		return
	}

	cards, err := h.Store.CreateFlashcards(r.Context(), userID, imported.Drafts)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.Logger.Info("imported flashcards", "user", userID, "count", len(cards), "skipped", len(imported.Skipped))
	writeJSON(w, http.StatusCreated, map[string]any{
		"flashcards": cards,
		"skipped":    imported.Skipped,
	})
}
