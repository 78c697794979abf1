package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/catalog"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/qr"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// generateQRMargin matches the margin of the original generator endpoint
const generateQRMargin = 2

type errorResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type generateQRRequest struct {
	Text                 string `json:"text"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel"`
}

type generateQRResponse struct {
	Success bool   `json:"success"`
	QRCode  string `json:"qrCode,omitempty"`
	Error   string `json:"error,omitempty"`
}

type convertRequest struct {
	Input  string `json:"input"`
	Mode   string `json:"mode"`
	Target string `json:"target"`
	Indent int    `json:"indent"`
}

type convertResponse struct {
	Format    codec.Format `json:"format"`
	Direction codec.Mode   `json:"direction"`
	Output    string       `json:"output"`
	Error     string       `json:"error,omitempty"`
}

type saveDataRequest struct {
	Tool       string `json:"tool"`
	InputData  string `json:"inputData"`
	OutputData string `json:"outputData"`
}

type saveDataResponse struct {
	Success bool           `json:"success"`
	Data    history.Record `json:"data"`
}

func (h *handlers) sitemap(w http.ResponseWriter, r *http.Request) {
	data, err := catalog.Sitemap(h.opts.SiteURL, h.opts.Now())
	if err != nil {
		h.opts.Logger.WithError(err).Error("Failed to build sitemap")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to build sitemap"})
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(data)
}

// qrImage serves GET /api/qr. "type" is the original name of the format parameter.
func (h *handlers) qrImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := h.opts.QRDefaults
	opts.Text = q.Get("text")

	formatName := q.Get("type")
	if v := q.Get("format"); v != "" {
		formatName = v
	}
	format, err := qr.ParseFormat(formatName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	opts.Format = format

	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid size %q", v)})
			return
		}
		opts.Size = size
	}
	if v := q.Get("margin"); v != "" {
		margin, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid margin %q", v)})
			return
		}
		opts.Margin = &margin
	}
	if v := q.Get("style"); v != "" {
		opts.Style = v
	}
	if v := q.Get("ecc"); v != "" {
		opts.Level = v
	}
	if v := q.Get("fg"); v != "" {
		opts.Foreground = v
	}
	if v := q.Get("bg"); v != "" {
		opts.Background = v
	}

	img, err := h.opts.Renderer.Render(r.Context(), opts)
	if err != nil {
		writeJSON(w, qrErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(img.Data)
}

func (h *handlers) generateQR(w http.ResponseWriter, r *http.Request) {
	var req generateQRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, generateQRResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, generateQRResponse{Error: "text is required"})
		return
	}

	margin := generateQRMargin
	img, err := h.opts.Renderer.Render(r.Context(), qr.Options{
		Text:   req.Text,
		Level:  req.ErrorCorrectionLevel,
		Margin: &margin,
		Format: qr.FormatDataURL,
	})
	if err != nil {
		writeJSON(w, qrErrorStatus(err), generateQRResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, generateQRResponse{Success: true, QRCode: string(img.Data)})
}

func (h *handlers) convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	mode, err := codec.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	target, err := codec.ParseFormat(req.Target)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	indent := req.Indent
	if indent == 0 {
		indent = h.opts.JSONIndent
	}

	res := codec.Convert(codec.Request{Input: req.Input, Mode: mode, Target: target, Indent: indent})
	resp := convertResponse{Format: res.Format, Direction: res.Direction, Output: res.Output}
	if !res.OK() {
		// Malformed input is a normal outcome, reported in the body
		resp.Error = res.Text()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) saveData(w http.ResponseWriter, r *http.Request) {
	if h.opts.Recorder == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "history is disabled"})
		return
	}

	var req saveDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rec, err := h.opts.Recorder.Record(r.Context(), req.Tool, req.InputData, req.OutputData)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, saveDataResponse{Success: true, Data: rec})
	case history.Skipped(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case errors.Is(err, history.ErrInvalidRecord):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, history.ErrStorageFull):
		writeJSON(w, http.StatusInsufficientStorage, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save data"})
	}
}

func (h *handlers) getData(w http.ResponseWriter, r *http.Request) {
	if h.opts.Recorder == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "history is disabled"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}

	records, err := h.opts.Recorder.List(r.Context(), limit)
	switch {
	case err == nil:
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	case history.Skipped(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	default:
		h.opts.Logger.WithError(err).Warn("Failed to list history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load data"})
	}
}

func (h *handlers) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Entries())
}

func (h *handlers) tool(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	entry, ok := catalog.Lookup(slug)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:       fmt.Sprintf("unknown tool %q", slug),
			Suggestions: catalog.Suggest(slug, 3),
		})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// qrErrorStatus maps render failures caused by the request to 400
func qrErrorStatus(err error) int {
	if errors.Is(err, qr.ErrTextTooLong) || errors.Is(err, qr.ErrUnknownStyle) || errors.Is(err, qr.ErrInvalidColour) ||
		strings.Contains(err.Error(), "error correction level") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("Failed to write JSON response")
	}
}
