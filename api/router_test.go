package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrstudio/widget"
)

// syncBuffer is a log sink shared between handler goroutines and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWithLog(t, io.Discard)
}

func newTestServerWithLog(t *testing.T, w io.Writer) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := httptest.NewServer(NewRouter(&Server{
		Views:     widget.NewRegistry(widget.DefaultDisplayConfig(), widget.Limits{}, log),
		Log:       log,
		Version:   "test",
		StartTime: time.Now(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeView(t *testing.T, resp *http.Response) viewResponse {
	t.Helper()
	var v viewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func mount(t *testing.T, srv *httptest.Server) viewResponse {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/views", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeView(t, resp)
}

func TestPage(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "QR Code Generator")
	require.Contains(t, string(body), `min="100" max="400"`)
	require.Contains(t, string(body), "qr-code.png")
	require.Contains(t, string(body), "seq: ++seq", "field changes carry an order")
	require.Contains(t, string(body), "r.status === 404", "expired views are remounted")
}

func TestMountRendersDefaults(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	v := mount(t, srv)
	require.NotEmpty(t, v.ID)
	require.Equal(t, widget.DefaultDisplayConfig(), v.Config)
	require.False(t, v.Preview.Placeholder)
	require.True(t, v.Preview.DownloadEnabled)
	require.Equal(t, 200, v.Preview.Width)
	require.Equal(t, "Size: 200px", v.Preview.Label)
	require.True(t, strings.HasPrefix(v.Preview.Image, "data:image/png;base64,"))

	resp := do(t, http.MethodGet, srv.URL+"/views/"+v.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, v.ID, decodeView(t, resp).ID)
}

func TestExportScenario(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	first := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export", nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	require.Equal(t, "image/png", first.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="qr-code.png"`, first.Header.Get("Content-Disposition"))
	a, err := io.ReadAll(first.Body)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(a))
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 200, img.Bounds().Dy())

	second := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export", nil)
	b, err := io.ReadAll(second.Body)
	require.NoError(t, err)
	require.Equal(t, a, b)

	uri := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export?as=datauri", nil)
	var er exportResponse
	require.NoError(t, json.NewDecoder(uri.Body).Decode(&er))
	require.Equal(t, "qr-code.png", er.Filename)
	require.Equal(t, v.Preview.Image, er.DataURI)
}

func TestEmptyPayloadShowsPlaceholder(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/text", map[string]string{"value": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeView(t, resp)
	require.True(t, got.Preview.Placeholder)
	require.False(t, got.Preview.DownloadEnabled)
	require.Equal(t, "Enter text to generate QR code", got.Preview.Message)
	require.Equal(t, 200, got.Preview.Width)
	require.Equal(t, 200, got.Preview.Height)
	require.Empty(t, got.Preview.Image)

	exp := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export", nil)
	require.Equal(t, http.StatusNoContent, exp.StatusCode)

	pv := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/preview.png", nil)
	require.Equal(t, http.StatusOK, pv.StatusCode)
	img, err := png.Decode(pv.Body)
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())

	resp = do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/text", map[string]string{"value": "back"})
	got = decodeView(t, resp)
	require.False(t, got.Preview.Placeholder)
	require.True(t, got.Preview.DownloadEnabled)
}

func TestSetSize(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/size", map[string]any{"value": 400})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeView(t, resp)
	require.Equal(t, "Size: 400px", got.Preview.Label)
	require.Equal(t, 400, got.Preview.Width)
	require.Equal(t, 400, got.Preview.Height)
	require.Equal(t, "https://example.com", got.Config.PayloadText)

	resp = do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/size", map[string]string{"value": "150"})
	require.Equal(t, 150, decodeView(t, resp).Config.PixelSize)

	resp = do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/size", map[string]string{"value": "big"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStaleFieldChangeIsDropped(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/text", map[string]any{"value": "abc", "seq": 2})
	latest := decodeView(t, resp)
	require.False(t, latest.Stale)
	require.Equal(t, int64(2), latest.Seq)

	resp = do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/text", map[string]any{"value": "ab", "seq": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeView(t, resp)
	require.True(t, got.Stale)
	require.Equal(t, "abc", got.Config.PayloadText)
	require.Equal(t, latest.Preview.Image, got.Preview.Image)

	exp := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export?as=datauri", nil)
	var er exportResponse
	require.NoError(t, json.NewDecoder(exp.Body).Decode(&er))
	require.Equal(t, latest.Preview.Image, er.DataURI)
}

func TestPreviewChangesAreLogged(t *testing.T) {
	t.Parallel()
	var logs syncBuffer
	srv := newTestServerWithLog(t, &logs)
	v := mount(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/size", map[string]any{"value": 300})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, logs.String(), "preview rendered")
	require.Contains(t, logs.String(), `label="Size: 300px"`)
}

func TestSetColors(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/background", map[string]string{"value": "#FFFDD0"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/foreground", map[string]string{"value": "#000080"})
	got := decodeView(t, resp)
	require.Equal(t, "#FFFDD0", got.Config.BackgroundColor)
	require.Equal(t, "#000080", got.Config.ForegroundColor)
	require.NotEqual(t, v.Preview.Image, got.Preview.Image)
}

func TestEncodingFailureIsReported(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/views/"+v.ID+"/text", map[string]string{"value": strings.Repeat("x", 4000)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeView(t, resp)
	require.NotEmpty(t, got.Preview.Error)
	require.Empty(t, got.Preview.Image)

	exp := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export", nil)
	require.Equal(t, http.StatusNoContent, exp.StatusCode)

	pv := do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/preview.png", nil)
	require.Equal(t, http.StatusUnprocessableEntity, pv.StatusCode)
}

func TestBadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "unknown view", method: http.MethodGet, path: "/views/nope", want: http.StatusNotFound},
		{name: "unknown view export", method: http.MethodGet, path: "/views/nope/export", want: http.StatusNotFound},
		{name: "unknown field", method: http.MethodPut, path: "/views/" + v.ID + "/margin", body: map[string]string{"value": "1"}, want: http.StatusNotFound},
		{name: "missing value", method: http.MethodPut, path: "/views/" + v.ID + "/text", body: map[string]string{}, want: http.StatusBadRequest},
		{name: "object value", method: http.MethodPut, path: "/views/" + v.ID + "/text", body: map[string]any{"value": map[string]int{"a": 1}}, want: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, srv.URL+tc.path, tc.body)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestUnmountAndStatus(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	v := mount(t, srv)
	mount(t, srv)

	var st statusResponse
	resp := do(t, http.MethodGet, srv.URL+"/status", nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, "ok", st.Status)
	require.Equal(t, 2, st.Views)
	require.Equal(t, "test", st.Version)

	resp = do(t, http.MethodDelete, srv.URL+"/views/"+v.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/views/"+v.ID+"/export", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/views/"+v.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRawValue(t *testing.T) {
	t.Parallel()

	got, err := rawValue(json.RawMessage(`"#fff"`))
	require.NoError(t, err)
	require.Equal(t, "#fff", got)

	got, err = rawValue(json.RawMessage(`250`))
	require.NoError(t, err)
	require.Equal(t, "250", got)

	_, err = rawValue(json.RawMessage(`null`))
	require.Error(t, err)
	_, err = rawValue(nil)
	require.Error(t, err)
}
