package handler

import (
	"context"
	"errors"
	"net/http"
	"time"
)

func logRequest(req *http.Request, status int, elapsed time.Duration) {
	log.Infof("%s -- %s -- %s -- %d -- %s", req.RemoteAddr, req.Method, req.URL.Path, status, elapsed.Round(time.Millisecond))
}

func logError(req *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		log.Infof("%s -- %s -- %s -- client went away: %v", req.RemoteAddr, req.Method, req.URL.Path, err)
		return
	}
	log.Errorf("%s -- %s -- %s -- %v", req.RemoteAddr, req.Method, req.URL.Path, err)
}

// logAndReturnError logs err and sends it to the API client as a JSON error body.
func logAndReturnError(w http.ResponseWriter, req *http.Request, err error, code int) {
	logError(req, err)
	writeJSON(w, code, APIError{Error: err.Error()})
}
