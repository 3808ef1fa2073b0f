package handler

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"docscan/config"
	"docscan/imaging"
	"docscan/manager"
	"docscan/scan"
)

const (
	formField       = "file"
	multipartMemory = 32 << 20

	// statusClientClosedRequest is nginx's code for a client that went away before the response.
	statusClientClosedRequest = 499
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Processor runs an upload through the scan pipeline.
type Processor interface {
	Process(ctx context.Context, up scan.Upload) (*scan.Result, error)
}

// Fetcher downloads remote resources.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPHandler serves the upload page and the JSON API.
type HTTPHandler struct {
	processor   Processor
	fetcher     Fetcher
	logoURL     string
	logoCaption string
	maxUpload   int64
	mux         *http.ServeMux
}

// NewHTTPHandler creates a new instance of HTTPHandler
func NewHTTPHandler(processor Processor, fetcher Fetcher, cfg *config.Config) *HTTPHandler {
	h := &HTTPHandler{
		processor:   processor,
		fetcher:     fetcher,
		logoURL:     cfg.Logo.URL,
		logoCaption: cfg.Logo.Caption,
		maxUpload:   cfg.Upload.MaxBytes,
		mux:         http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("POST /analyze", h.analyzeForm)
	h.mux.HandleFunc("POST /api/analyze", h.analyzeAPI)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	return h
}

// ServeHTTP implements the http.Handler interface for HTTPHandler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	h.mux.ServeHTTP(rec, r)
	logRequest(r, rec.status, time.Since(start))
}

func (h *HTTPHandler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(r.Context()))
}

func (h *HTTPHandler) analyzeForm(w http.ResponseWriter, r *http.Request) {
	page := h.newPage(r.Context())

	up, status, err := h.readUpload(w, r)
	if err != nil {
		logError(r, err)
		page.Error = err.Error()
		h.render(w, r, status, page)
		return
	}

	res, err := h.processor.Process(r.Context(), up)
	if err != nil {
		logError(r, err)
		if res != nil {
			page.Preview = template.URL(res.Preview)
		}
		page.Error = err.Error()
		h.render(w, r, statusFor(err), page)
		return
	}

	page.Result = &resultView{
		ID:       res.ID,
		Kind:     string(res.Kind),
		Filename: res.Filename,
		Preview:  template.URL(res.Preview),
		Text:     res.Text,
		Pages:    res.Pages,
	}
	h.render(w, r, http.StatusOK, page)
}

func (h *HTTPHandler) analyzeAPI(w http.ResponseWriter, r *http.Request) {
	up, status, err := h.readUpload(w, r)
	if err != nil {
		logAndReturnError(w, r, err, status)
		return
	}

	res, err := h.processor.Process(r.Context(), up)
	if err != nil {
		logAndReturnError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, APIResult{
		ID:         res.ID,
		Kind:       string(res.Kind),
		Filename:   res.Filename,
		MediaType:  res.MediaType,
		Text:       res.Text,
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func (h *HTTPHandler) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// readUpload pulls the uploaded file out of a multipart request. The returned status applies
// when err is not nil.
func (h *HTTPHandler) readUpload(w http.ResponseWriter, r *http.Request) (scan.Upload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return scan.Upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds the %dMB upload limit", h.maxUpload>>20)
		}
		return scan.Upload{}, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return scan.Upload{}, http.StatusBadRequest, errors.New("no file uploaded")
		}
		return scan.Upload{}, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return scan.Upload{}, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err)
	}

	return scan.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, http.StatusOK, nil
}

func (h *HTTPHandler) newPage(ctx context.Context) *pageData {
	page := &pageData{
		Title:       pageTitle,
		Subtitle:    pageSubtitle,
		Accept:      strings.Join(scan.AllowedExtensions, ","),
		MaxUploadMB: h.maxUpload >> 20,
	}

	logo, err := h.loadLogo(ctx)
	if err != nil {
		log.Errorf("Error loading image: %v", err)
		page.LogoError = fmt.Sprintf("Error loading image: %v", err)
	} else {
		page.Logo = logo
	}
	return page
}

// loadLogo fetches the logo on every render and inlines it as a data URL.
func (h *HTTPHandler) loadLogo(ctx context.Context) (*logoView, error) {
	if h.logoURL == "" {
		return nil, nil
	}
	data, _, err := h.fetcher.Fetch(ctx, h.logoURL)
	if err != nil {
		return nil, err
	}
	info, err := imaging.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("cannot identify image file: %w", err)
	}
	return &logoView{
		Src:     template.URL("data:" + info.MediaType + ";base64," + base64.StdEncoding.EncodeToString(data)),
		Caption: h.logoCaption,
	}, nil
}

func (h *HTTPHandler) render(w http.ResponseWriter, r *http.Request, status int, page *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, page); err != nil {
		logError(r, fmt.Errorf("rendering page: %w", err))
	}
}

// statusFor maps processing errors to HTTP statuses.
func statusFor(err error) int {
	var stageErr *scan.StageError
	switch {
	case errors.Is(err, scan.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, scan.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, manager.ErrQueueTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &stageErr):
		switch stageErr.Stage {
		case scan.StageReadImage, scan.StageExtract:
			return http.StatusUnprocessableEntity
		case scan.StageModel:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
