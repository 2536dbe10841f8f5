package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akilli-icerik/apiserver/internal/extract"
	"github.com/akilli-icerik/apiserver/internal/report"
	"github.com/akilli-icerik/apiserver/internal/services"
	"github.com/akilli-icerik/apiserver/internal/storage"
	"github.com/akilli-icerik/apiserver/types"
)

const multipartParseMemory = 32 << 20

// ReportHandler serves content analysis and report listing.
type ReportHandler struct {
	reportService  *services.ReportService
	maxUploadBytes int64
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(reportService *services.ReportService, maxUploadBytes int64) *ReportHandler {
	return &ReportHandler{reportService: reportService, maxUploadBytes: maxUploadBytes}
}

// ReportRouter registers analysis routes. All of them require auth.
func ReportRouter(r chi.Router, reportService *services.ReportService, auth func(http.Handler) http.Handler, maxUploadBytes int64) {
	handler := NewReportHandler(reportService, maxUploadBytes)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/analiz-et", handler.Analyze)
		r.Get("/reports/my-reports", handler.ListMyReports)
	})
}

// AnalyzeResponse mirrors the wire contract of the analysis endpoint.
// DosyaURL is null when the report body was produced but never stored.
type AnalyzeResponse struct {
	UserID        string  `json:"user_id"`
	RaporMarkdown string  `json:"rapor_markdown"`
	DosyaURL      *string `json:"dosya_url"`
}

// Analyze accepts either a multipart file upload under "dosya" or a
// "youtube_url" value and runs the analysis pipeline on it.
func (h *ReportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	input, ok := h.parseAnalyzeInput(w, r)
	if !ok {
		return
	}

	result, err := h.reportService.Analyze(r.Context(), user, input)
	if err != nil {
		status, message := analyzeStatus(err)
		writeError(w, status, message)
		return
	}

	resp := AnalyzeResponse{
		UserID:        result.UserIDStr,
		RaporMarkdown: result.Markdown,
	}
	if result.Locator != "" {
		resp.DosyaURL = &result.Locator
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseAnalyzeInput extracts the upload and/or URL from the request. It
// writes the error response itself and returns ok=false on failure.
func (h *ReportHandler) parseAnalyzeInput(w http.ResponseWriter, r *http.Request) (services.AnalyzeInput, bool) {
	var input services.AnalyzeInput

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartParseMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return input, false
		}

		file, header, err := r.FormFile("dosya")
		switch {
		case err == nil:
			defer file.Close()
			data, readErr := h.readUpload(file, header)
			if readErr != nil {
				if errors.Is(readErr, errUploadTooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
				} else {
					writeError(w, http.StatusBadRequest, "failed to read uploaded file")
				}
				return input, false
			}
			input.FileName = header.Filename
			input.Data = data
		case errors.Is(err, http.ErrMissingFile):
			// URL-only request, fine.
		default:
			writeError(w, http.StatusBadRequest, "invalid file upload")
			return input, false
		}
	} else if contentType != "" {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return input, false
		}
	}

	if url := strings.TrimSpace(r.FormValue("youtube_url")); url != "" {
		input.RemoteVideoURL = url
	} else if url := strings.TrimSpace(r.URL.Query().Get("youtube_url")); url != "" {
		input.RemoteVideoURL = url
	}
	return input, true
}

func (h *ReportHandler) readUpload(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	if header.Size > h.maxUploadBytes {
		return nil, errUploadTooLarge
	}
	return readFileLimited(file, h.maxUploadBytes)
}

// ListMyReports returns the caller's report records, newest first.
func (h *ReportHandler) ListMyReports(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	skip, limit, err := parseSkipLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := h.reportService.List(r.Context(), user.ID, skip, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []types.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// analyzeStatus maps pipeline errors to HTTP responses. Input problems
// are the client's fault, everything downstream of generation is ours.
func analyzeStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNoInput),
		errors.Is(err, services.ErrAmbiguousInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, extract.ErrUnsupportedType):
		return http.StatusBadRequest, "unsupported file type"
	case errors.Is(err, extract.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "file exceeds the upload size limit"
	case errors.Is(err, extract.ErrNoTextExtracted):
		return http.StatusBadRequest, "no text could be extracted from the content"
	case errors.Is(err, extract.ErrSourceUnavailable):
		return http.StatusBadRequest, "remote video is unavailable"
	case errors.Is(err, extract.ErrExtractionFailed):
		return http.StatusBadRequest, "content could not be read"
	case errors.Is(err, report.ErrGenerationFailed):
		return http.StatusInternalServerError, "report generation failed"
	case errors.Is(err, storage.ErrStorageUnavailable):
		return http.StatusInternalServerError, "report could not be stored"
	default:
		return http.StatusInternalServerError, "content analysis failed"
	}
}
