package handler

import "html/template"

const (
	pageTitle    = "סרוק את המסמך המבוקש לחילוץ מידע"
	pageSubtitle = "בחר תמונה לניתוח"
)

type logoView struct {
	Src     template.URL
	Caption string
}

type resultView struct {
	ID       string
	Kind     string
	Filename string
	Preview  template.URL
	Text     string
	Pages    int
}

type pageData struct {
	Title       string
	Subtitle    string
	Accept      string
	MaxUploadMB int64
	Logo        *logoView
	LogoError   string
	Result      *resultView
	// Preview is the uploaded image when processing failed after it was read.
	Preview     template.URL
	Error       string
}

// APIResult is the JSON body returned by the API on success.
type APIResult struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Filename   string `json:"filename"`
	MediaType  string `json:"media_type"`
	Text       string `json:"text"`
	Pages      int    `json:"pages,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// APIError is the JSON body returned by the API on failure.
type APIError struct {
	Error string `json:"error"`
}
