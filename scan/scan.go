// Package scan routes an uploaded document to image analysis or PDF text extraction.
package scan

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docscan/bedrock"
	"docscan/config"
	"docscan/extract"
	"docscan/imaging"
	"docscan/logging"
)

type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

const (
	poolAnalyze = "analyze"
	poolExtract = "extract"
)

var (
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Stage names the step of the pipeline that failed.
type Stage string

const (
	StageReadImage Stage = "reading image"
	StagePrompt    Stage = "preparing prompt"
	StageModel     Stage = "invoking model"
	StageExtract   Stage = "extracting text"
)

// StageError is shown to the user as is.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return "error " + string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AllowedExtensions lists the file extensions the uploader accepts.
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".pdf"}

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}

// Analyzer sends an image and a prompt to the model.
type Analyzer interface {
	Analyze(ctx context.Context, img bedrock.Image, prompt string) (string, error)
}

// PromptSource produces the prompt for each analysis.
type PromptSource interface {
	Build() (string, error)
}

// Limiter hands out slots from named pools.
type Limiter interface {
	Acquire(ctx context.Context, pool string) (func(), error)
}

// Upload is one file received from the page or the API.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is what gets displayed for an upload.
type Result struct {
	ID        string
	Kind      Kind
	Filename  string
	MediaType string
	// Text is the model analysis for images and the extracted text for PDFs.
	Text string
	// Preview is a data URL of the uploaded image; empty for PDFs.
	Preview  string
	Pages    int
	Duration time.Duration
}

// Service processes uploads synchronously.
type Service struct {
	model   Analyzer
	prompts PromptSource
	limiter Limiter
	image   config.ImageConfig
}

func NewService(model Analyzer, prompts PromptSource, limiter Limiter, image config.ImageConfig) *Service {
	return &Service{
		model:   model,
		prompts: prompts,
		limiter: limiter,
		image:   image,
	}
}

// Process detects the upload type and runs the matching pipeline.
// When a later stage fails, the partial result is returned along with the error so the
// caller can still show the preview of the uploaded image.
func (s *Service) Process(ctx context.Context, up Upload) (*Result, error) {
	if len(up.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	mediaType, err := DetectType(up)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		ID:        uuid.NewString(),
		Filename:  up.Filename,
		MediaType: mediaType,
	}
	entry := log.WithFields(logrus.Fields{
		"id":         result.ID,
		"file":       up.Filename,
		"media_type": mediaType,
		"size":       len(up.Data),
	})

	if mediaType == "application/pdf" {
		entry.Info("Extracting text from the PDF...")
		err = s.processPDF(ctx, up, result)
	} else {
		entry.Info("Analyzing the image...")
		err = s.processImage(ctx, up, result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			entry.Info("Processing canceled")
		} else {
			entry.WithError(err).Warn("Processing failed")
		}
		return result, err
	}

	result.Duration = time.Since(start)
	entry.WithField("elapsed", result.Duration.Round(time.Millisecond)).Info("Processing finished")
	return result, nil
}

func (s *Service) processImage(ctx context.Context, up Upload, result *Result) error {
	result.Kind = KindImage

	info, err := imaging.Inspect(up.Data)
	if err != nil {
		return &StageError{Stage: StageReadImage, Err: err}
	}
	if info.MediaType != "image/jpeg" && info.MediaType != "image/png" {
		return &StageError{Stage: StageReadImage, Err: fmt.Errorf("%w: %s content", ErrUnsupportedType, info.Format)}
	}
	if err := imaging.CheckPixels(info, s.image.MaxPixels); err != nil {
		return &StageError{Stage: StageReadImage, Err: err}
	}
	result.MediaType = info.MediaType
	result.Preview = "data:" + info.MediaType + ";base64," + base64.StdEncoding.EncodeToString(up.Data)

	data, fitted, err := imaging.Fit(up.Data, info, s.image.MaxDimension)
	if err != nil {
		return &StageError{Stage: StageReadImage, Err: err}
	}
	if fitted != info {
		log.Debugf("Downscaled %s from %dx%d to %dx%d", up.Filename, info.Width, info.Height, fitted.Width, fitted.Height)
	}

	prompt, err := s.prompts.Build()
	if err != nil {
		return &StageError{Stage: StagePrompt, Err: err}
	}

	release, err := s.limiter.Acquire(ctx, poolAnalyze)
	if err != nil {
		return &StageError{Stage: StageModel, Err: err}
	}
	defer release()

	text, err := s.model.Analyze(ctx, bedrock.Image{MediaType: fitted.MediaType, Data: data}, prompt)
	if err != nil {
		return &StageError{Stage: StageModel, Err: err}
	}
	result.Text = text
	return nil
}

func (s *Service) processPDF(ctx context.Context, up Upload, result *Result) error {
	result.Kind = KindPDF

	release, err := s.limiter.Acquire(ctx, poolExtract)
	if err != nil {
		return &StageError{Stage: StageExtract, Err: err}
	}
	defer release()

	text, pages, err := extract.PDFText(up.Data)
	if err != nil {
		return &StageError{Stage: StageExtract, Err: err}
	}
	result.Text = text
	result.Pages = pages
	return nil
}

// DetectType returns the media type of an upload. The declared content type is trusted when it
// is a supported one; a missing or generic type is replaced by content sniffing.
func DetectType(up Upload) (string, error) {
	if !allowedExtension(up.Filename) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(up.Filename))
	}

	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(up.ContentType, ";", 2)[0]))
	if declared == "" || declared == "application/octet-stream" {
		declared = http.DetectContentType(up.Data)
	}

	switch declared {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "image/jpeg", nil
	case "image/png":
		return "image/png", nil
	case "application/pdf":
		return "application/pdf", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
}

func allowedExtension(filename string) bool {
	// API clients may omit the name; the content type decides then.
	if filename == "" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
