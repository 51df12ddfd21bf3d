package upload

import (
	"net/http"

	"github.com/paired-app/paired/internal/auth"
	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
)

// Handler serves POST /api/upload behind the session guard. Unlike the
// action routes this one takes a multipart form with a single "file"
// field, but it answers with the same envelope.
type Handler struct {
	service     *Service
	maxFileSize int64
	logger      *logging.Logger
}

func NewHandler(service *Service, maxFileSize int64, logger *logging.Logger) *Handler {
	return &Handler{service: service, maxFileSize: maxFileSize, logger: logger}
}

type UploadResponse struct {
	URL string `json:"url"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "file too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "file field is required")
		return
	}
	defer file.Close()

	url := h.service.Upload(r.Context(), header.Filename, file)

	logger.Info("file uploaded", "user", claims.Email, "filename", header.Filename)
	httputil.WriteOK(w, "uploaded", UploadResponse{URL: url})
}
