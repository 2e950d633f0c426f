package clientapp

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/manifest"
	"github.com/cmjl/deliverydesk/internal/session"
)

func (s *server) uploadRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.uploadPage(w, r)
	case http.MethodPost:
		s.upload(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) uploadData(r *http.Request, sess session.Session, selected int64) pageData {
	data := pageData{
		Title:       "Upload Manifest",
		Nav:         "upload",
		CSRF:        sess.CSRF,
		User:        sess,
		IsAdmin:     sess.IsAdmin(),
		MaxUploadMB: manifest.MaxSize >> 20,
	}
	if !sess.IsAdmin() {
		data.OwnDriverID = sess.DriverID
		return data
	}
	options, err := s.driverOptions(r.Context(), sess)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("driver list unavailable")
		data.Error = backend.Message(err, "Failed to fetch drivers")
		return data
	}
	for _, o := range options {
		data.DriverOptions = append(data.DriverOptions, optionView{
			Value:    strconv.FormatInt(o.ID, 10),
			Label:    o.Label,
			Selected: o.ID == selected,
		})
	}
	return data
}

func (s *server) uploadPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()
	selected, _ := parseID(q.Get("driver"))
	data := s.uploadData(r, sess, selected)
	if msg := q.Get("error"); msg != "" {
		data.Error = msg
	}
	data.Message = q.Get("message")
	s.render(w, r, s.uploadTmpl, data)
}

func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	logger := zerolog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, manifest.MaxSize+1<<20)
	if err := r.ParseMultipartForm(manifest.MaxSize); err != nil {
		redirectWith(w, r, "/upload", "error", "File is too large or the form is invalid.")
		return
	}
	if !checkCSRF(r, sess) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	driverID := sess.DriverID
	if sess.IsAdmin() {
		id, ok := parseID(r.FormValue("driver_id"))
		if !ok {
			s.uploadFailed(w, r, sess, 0, "Please select a driver.")
			return
		}
		driverID = id
	}
	if driverID <= 0 {
		s.uploadFailed(w, r, sess, 0, "Your session has no driver id. Please log in again.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.uploadFailed(w, r, sess, driverID, "Please choose a file to upload.")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if err := manifest.Validate(header.Filename, mimeType); err != nil {
		s.uploadFailed(w, r, sess, driverID, manifest.InvalidFormatMessage)
		return
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		s.uploadFailed(w, r, sess, driverID, "Upload failed.")
		return
	}
	summary, err := manifest.Inspect(bytes.NewReader(raw), header.Filename, mimeType)
	if err != nil {
		msg := "The file could not be read."
		switch {
		case errors.Is(err, manifest.ErrEmpty):
			msg = "The file is empty."
		case errors.Is(err, manifest.ErrHeaderOnly):
			msg = "The file has a header row but no deliveries."
		}
		logger.Info().Err(err).Str("file", header.Filename).Msg("manifest rejected")
		s.uploadFailed(w, r, sess, driverID, msg)
		return
	}

	if err := s.api.Upload(r.Context(), sess.Token, driverID, header.Filename, bytes.NewReader(raw)); err != nil {
		logger.Warn().Err(err).Int64("driver", driverID).Msg("upload failed")
		s.uploadFailed(w, r, sess, driverID, backend.Message(err, "Upload failed."))
		return
	}

	logger.Info().
		Int64("driver", driverID).
		Str("file", header.Filename).
		Str("format", summary.Format).
		Int("rows", summary.Rows).
		Msg("manifest uploaded")
	data := s.uploadData(r, sess, driverID)
	data.Message = "Upload successful: " + summaryLine(summary.Rows, summary.Header) + "."
	data.UploadedRows = summary.Rows
	data.UploadedHeader = summary.Header
	s.render(w, r, s.uploadTmpl, data)
}

func (s *server) uploadFailed(w http.ResponseWriter, r *http.Request, sess session.Session, driverID int64, msg string) {
	data := s.uploadData(r, sess, driverID)
	data.Error = msg
	s.render(w, r, s.uploadTmpl, data)
}
