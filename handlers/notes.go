package handlers

import (
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andrewpaige1/prepass-api/analysis"
	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/models"
	"github.com/andrewpaige1/prepass-api/repository"
	"github.com/andrewpaige1/prepass-api/utils"
)

const (
	maxUploads     = 10
	excerptLength  = 200
	maxMemoryBytes = 32 << 20
)

type analyzeResponse struct {
	Flashcards      []models.Flashcard      `json:"flashcards"`
	Quizzes         []models.Quiz           `json:"quizzes"`
	ImportantPoints []models.ImportantPoint `json:"importantPoints"`
	Summary         string                  `json:"summary"`
	Note            *models.Note            `json:"note"`
	Rejected        []analysis.Rejection    `json:"rejected,omitempty"`
	Warning         string                  `json:"warning,omitempty"`
}

type jsonFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Data is base64, optionally as a data URL.
	Data string `json:"data"`
}

type analyzeJSONRequest struct {
	Text  string     `json:"text"`
	Files []jsonFile `json:"files"`
}

// AnalyzeNotes turns submitted notes into stored study material. It accepts
// multipart forms with a text field and files, or a JSON body with base64 files.
func (h *Handler) AnalyzeNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(maxUploads)*h.Limits.MaxFileBytes*2+1<<20)
	text, uploads, err := readNotes(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	req, rejected := analysis.Collect(text, uploads, h.Limits)
	if req.Empty() {
		if len(rejected) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":    "None of the uploaded files could be used",
				"code":     string(apperr.KindValidation),
				"rejected": rejected,
			})
			return
		}
		h.respondErr(w, r, apperr.Input("No content provided"))
		return
	}

	if h.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "AI service is not configured")
		return
	}

	result, err := h.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	saved, note, err := h.Store.SaveAnalysis(r.Context(), userID, repository.Generated{
		Flashcards:      result.Flashcards,
		Quizzes:         result.Quizzes,
		ImportantPoints: result.ImportantPoints,
		Note: models.Note{
			Excerpt:    utils.Excerpt(req.Text, excerptLength),
			Summary:    result.Summary,
			ImageCount: len(req.Images),
			PDFCount:   len(req.PDFs),
		},
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	resp := analyzeResponse{
		Flashcards:      saved.Flashcards,
		Quizzes:         saved.Quizzes,
		ImportantPoints: saved.ImportantPoints,
		Summary:         result.Summary,
		Note:            note,
		Rejected:        rejected,
	}
	if result.BelowMinimum() {
		resp.Warning = "Fewer flashcards or quizzes were generated than usual. Try adding more detailed notes."
	}

	h.Logger.Info("notes analyzed",
		"user", userID,
		"flashcards", len(saved.Flashcards),
		"quizzes", len(saved.Quizzes),
		"important_points", len(saved.ImportantPoints),
		"rejected", len(rejected))
	writeJSON(w, http.StatusCreated, resp)
}

func readNotes(r *http.Request) (string, []analysis.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipartNotes(r)
	}

	var body analyzeJSONRequest
	if err := decodeJSON(r, &body); err != nil {
		return "", nil, err
	}
	if len(body.Files) > maxUploads {
		return "", nil, apperr.Validation("Too many files, at most 10 per request")
	}

	uploads := make([]analysis.Upload, 0, len(body.Files))
	for _, f := range body.Files {
		data, declared, err := decodeFileData(f.Data)
		if err != nil {
			return "", nil, apperr.Validation(f.Name + " is not valid base64")
		}
		if f.Type != "" {
			declared = f.Type
		}
		uploads = append(uploads, analysis.Upload{Name: f.Name, DeclaredType: declared, Data: data})
	}
	return body.Text, uploads, nil
}

func readMultipartNotes(r *http.Request) (string, []analysis.Upload, error) {
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		return "", nil, apperr.Validation("Could not read the uploaded form")
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) > maxUploads {
		return "", nil, apperr.Validation("Too many files, at most 10 per request")
	}

	uploads := make([]analysis.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return "", nil, apperr.Validation("Could not read " + fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return "", nil, apperr.Validation("Could not read " + fh.Filename)
		}
		uploads = append(uploads, analysis.Upload{
			Name:         fh.Filename,
			DeclaredType: fh.Header.Get("Content-Type"),
			Data:         data,
		})
	}
	return r.FormValue("text"), uploads, nil
}

// decodeFileData accepts plain base64 or a data URL and returns the bytes and
// the media type named in the URL, if any.
func decodeFileData(s string) ([]byte, string, error) {
	declared := ""
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", apperr.Validation("malformed data URL")
		}
		declared, _, _ = strings.Cut(meta, ";")
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	return data, declared, nil
}

func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	notes, err := h.Store.ListNotes(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteNote(r.Context(), userID, r.PathValue("noteID")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
