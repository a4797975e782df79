package handlers

import (
	"net/http"

	"github.com/andrewpaige1/prepass-api/study"
)

func (h *Handler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	lib, err := h.Store.LoadLibrary(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

// DeleteLibrary removes every flashcard, quiz and important point of the user.
func (h *Handler) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteAll(r.Context(), userID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.Sessions.Drop(userID)
	h.Logger.Info("deleted all study data", "user", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetQuizzes(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	quizzes, err := h.Store.ListQuizzes(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) GetImportantPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	points, err := h.Store.ListImportantPoints(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	lib, err := h.Store.LoadLibrary(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	completed, err := h.Store.CountQuizResults(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	dashboard := study.Summarize(lib.Flashcards, study.Extras{
		Quizzes:          len(lib.Quizzes),
		QuizzesCompleted: completed,
		ImportantPoints:  len(lib.ImportantPoints),
	})
	writeJSON(w, http.StatusOK, dashboard)
}
