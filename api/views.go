package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/qrstudio/widget"
)

type previewResponse struct {
	Placeholder     bool   `json:"placeholder"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Message         string `json:"message,omitempty"`
	Label           string `json:"label"`
	DownloadEnabled bool   `json:"download_enabled"`
	Image           string `json:"image,omitempty"`
	Error           string `json:"error,omitempty"`
}

type viewResponse struct {
	ID      string               `json:"id"`
	Seq     int64                `json:"seq"`
	Stale   bool                 `json:"stale,omitempty"`
	Config  widget.DisplayConfig `json:"config"`
	Preview previewResponse      `json:"preview"`
}

type setFieldRequest struct {
	Value json.RawMessage `json:"value"`
	Seq   int64           `json:"seq,omitempty"`
}

type exportResponse struct {
	Filename string `json:"filename"`
	DataURI  string `json:"data_uri"`
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	id, v := s.Views.Mount(clientKey(r))
	v.Subscribe(func(p widget.Preview) {
		s.Log.Debug("preview rendered", "view_id", id, "label", p.Label, "placeholder", p.Placeholder, "width", p.Width, "height", p.Height)
	})
	writeJSON(w, http.StatusCreated, s.viewResponse(id, v))
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	id, v, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.viewResponse(id, v))
}

func (s *Server) handleUnmount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Views.Unmount(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unmounted"})
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	id, v, ok := s.lookupView(w, r)
	if !ok {
		return
	}

	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value, err := rawValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	field := chi.URLParam(r, "field")
	p, applied, err := v.Apply(req.Seq, widget.Field(field), value)
	switch {
	case errors.Is(err, widget.ErrUnknownField):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown field %q", field))
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !applied {
		s.Log.Debug("stale field change dropped", "view_id", id, "field", field, "seq", req.Seq)
	}
	if p.Err != nil {
		s.Log.Warn("qr encoding failed", "view_id", id, "error", p.Err)
	}
	resp := s.renderResponse(id, v.Config(), v.LastSeq(), p)
	resp.Stale = !applied
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	_, v, ok := s.lookupView(w, r)
	if !ok {
		return
	}

	p := v.Preview()
	data, err := previewPNG(p)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, v, ok := s.lookupView(w, r)
	if !ok {
		return
	}

	d, ok := v.Export()
	if !ok {
		// Nothing rendered: the export is a silent no-op.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.Log.Info("qr exported", "view_id", id, "bytes", len(d.Data))

	if r.URL.Query().Get("as") == "datauri" {
		writeJSON(w, http.StatusOK, exportResponse{Filename: d.Filename, DataURI: d.DataURI})
		return
	}

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(d.Data)
}

// --- helpers ----------------------------------------------------------------

func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) (string, *widget.View, bool) {
	id := chi.URLParam(r, "id")
	v, err := s.Views.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", nil, false
	}
	return id, v, true
}

func (s *Server) viewResponse(id string, v *widget.View) viewResponse {
	return s.renderResponse(id, v.Config(), v.LastSeq(), v.Preview())
}

func (s *Server) renderResponse(id string, cfg widget.DisplayConfig, seq int64, p widget.Preview) viewResponse {
	resp := viewResponse{
		ID:     id,
		Seq:    seq,
		Config: cfg,
		Preview: previewResponse{
			Placeholder:     p.Placeholder,
			Width:           p.Width,
			Height:          p.Height,
			Message:         p.Message,
			Label:           p.Label,
			DownloadEnabled: p.DownloadEnabled,
		},
	}
	if p.Err != nil {
		resp.Preview.Error = p.Err.Error()
		return resp
	}
	if p.Surface != nil {
		uri, err := p.Surface.DataURI()
		if err != nil {
			s.Log.Error("png encoding failed", "view_id", id, "error", err)
			resp.Preview.Error = err.Error()
			return resp
		}
		resp.Preview.Image = uri
	}
	return resp
}

// clientKey identifies the client behind r for per-client view quotas.
// RealIP has already replaced RemoteAddr with the forwarded address when
// one was sent.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// previewPNG encodes whatever the preview area currently shows.
func previewPNG(p widget.Preview) ([]byte, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Surface != nil {
		return p.Surface.PNG()
	}
	img := p.Image()
	if img == nil {
		return nil, errors.New("nothing to preview")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// rawValue accepts a JSON string or a bare JSON scalar (e.g. a slider number)
// and returns it as text.
func rawValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("value is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.New("invalid value")
		}
		return s, nil
	}
	if raw[0] == '{' || raw[0] == '[' {
		return "", errors.New("value must be a string or number")
	}
	return string(raw), nil
}
