package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/service"
	"github.com/annel0/voxel-editor/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, withStorage bool) http.Handler {
	t.Helper()
	opts := service.Options{Generators: service.DefaultGenerators(1)}
	if withStorage {
		store, err := storage.NewCatalogStorage(storage.Options{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		opts.Storage = store
	}
	svc, err := service.New(opts)
	require.NoError(t, err)
	return NewRestServer(Config{Service: svc}).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, false)
	w, _ := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTypesCRUD(t *testing.T) {
	h := newTestServer(t, false)

	w, resp := do(t, h, http.MethodPost, "/api/types", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[blocks.BlockType](t, resp.Data)
	assert.Equal(t, "New Block", created.Name)
	assert.Equal(t, uint64(2), created.Key)

	w, resp = do(t, h, http.MethodPost, "/api/types", map[string]interface{}{"name": "Glass", "hasBlending": true})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode[blocks.BlockType](t, resp.Data).HasBlending)

	w, resp = do(t, h, http.MethodPost, "/api/types/0/clone", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Default block (Copy)", decode[blocks.BlockType](t, resp.Data).Name)

	w, resp = do(t, h, http.MethodPatch, "/api/types/1", map[string]interface{}{"field": "light", "value": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decode[blocks.BlockType](t, resp.Data).Light)

	w, _ = do(t, h, http.MethodDelete, "/api/types/0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, h, http.MethodGet, "/api/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	types := decode[[]blocks.BlockType](t, resp.Data)
	require.Len(t, types, 3)
	assert.Equal(t, "New Block", types[0].Name)
}

func TestTypesErrors(t *testing.T) {
	h := newTestServer(t, false)

	cases := []struct {
		method, path string
		body         interface{}
		status       int
	}{
		{http.MethodPost, "/api/types/9/clone", nil, http.StatusNotFound},
		{http.MethodDelete, "/api/types/x", nil, http.StatusBadRequest},
		{http.MethodPatch, "/api/types/0", map[string]interface{}{"field": "color", "value": 1}, http.StatusBadRequest},
		{http.MethodPatch, "/api/types/0", map[string]interface{}{"field": "hasAlpha", "value": "yes"}, http.StatusBadRequest},
		{http.MethodPatch, "/api/types/0", map[string]interface{}{"field": "model", "value": "teapot"}, http.StatusBadRequest},
		{http.MethodPatch, "/api/types/0", map[string]interface{}{"value": 1}, http.StatusBadRequest},
		{http.MethodPost, "/api/types", map[string]interface{}{"hasAlpha": true, "hasBlending": true}, http.StatusBadRequest},
		{http.MethodGet, "/api/types/0/textures/front", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/types/3/textures/top", nil, http.StatusNotFound},
		{http.MethodPut, "/api/types/0/textures/top", map[string]string{"bitmap": "AAAA"}, http.StatusBadRequest},
		{http.MethodGet, "/api/atlas/glass", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/snapshots", nil, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		w, resp := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.status, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
		assert.False(t, resp.Success)
	}

	// Ни одна ошибка не изменила каталог
	_, resp := do(t, h, http.MethodGet, "/api/types", nil)
	assert.Len(t, decode[[]blocks.BlockType](t, resp.Data), 1)
}

func TestTextures(t *testing.T) {
	h := newTestServer(t, false)

	var b blocks.Bitmap
	b.Fill(9, 8, 7, 255)
	encoded := blocks.EncodeBitmap(b)

	w, _ := do(t, h, http.MethodPut, "/api/types/0/textures/side", map[string]string{"bitmap": encoded})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := do(t, h, http.MethodGet, "/api/types/0/textures/side", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, encoded, decode[TextureResponse](t, resp.Data).Bitmap)

	w, resp = do(t, h, http.MethodPost, "/api/types/0/textures/side/generate", map[string]string{"generator": "perlin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, encoded, decode[TextureResponse](t, resp.Data).Bitmap)

	w, _ = do(t, h, http.MethodPost, "/api/types/0/textures/side/generate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, http.MethodPost, "/api/types/0/textures/side/generate", map[string]string{"generator": "voronoi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogRoundTrip(t *testing.T) {
	h := newTestServer(t, false)
	do(t, h, http.MethodPost, "/api/types", map[string]interface{}{"name": "Leaves", "model": "cross", "hasAlpha": true})

	_, resp := do(t, h, http.MethodGet, "/api/catalog", nil)
	records := decode[[]blocks.Record](t, resp.Data)
	require.Len(t, records, 2)

	other := newTestServer(t, false)
	w, resp := do(t, other, http.MethodPut, "/api/catalog", records)
	require.Equal(t, http.StatusOK, w.Code)
	types := decode[[]blocks.BlockType](t, resp.Data)
	require.Len(t, types, 2)
	assert.Equal(t, uint64(1), types[0].Key)
	assert.Equal(t, uint64(2), types[1].Key)

	_, resp = do(t, other, http.MethodGet, "/api/catalog", nil)
	assert.Equal(t, records, decode[[]blocks.Record](t, resp.Data))

	records[1].Textures.Top = "bad"
	w, _ = do(t, other, http.MethodPut, "/api/catalog", records)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = do(t, other, http.MethodPost, "/api/catalog/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]blocks.BlockType](t, resp.Data), 1)
}

func TestSnapshots(t *testing.T) {
	h := newTestServer(t, true)
	do(t, h, http.MethodPost, "/api/types", nil)

	w, resp := do(t, h, http.MethodPost, "/api/snapshots/v1", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, decode[storage.SnapshotInfo](t, resp.Data).Types)

	do(t, h, http.MethodPost, "/api/catalog/reset", nil)

	w, resp = do(t, h, http.MethodPost, "/api/snapshots/v1/load", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]blocks.BlockType](t, resp.Data), 2)

	_, resp = do(t, h, http.MethodGet, "/api/snapshots", nil)
	assert.Len(t, decode[[]storage.SnapshotInfo](t, resp.Data), 1)

	w, _ = do(t, h, http.MethodPost, "/api/snapshots/bad%20name", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodDelete, "/api/snapshots/v1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, h, http.MethodPost, "/api/snapshots/v1/load", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAtlas(t *testing.T) {
	h := newTestServer(t, false)

	_, resp := do(t, h, http.MethodGet, "/api/atlas", nil)
	var set struct {
		Generation uint64 `json:"generation"`
		Opaque     struct {
			Width  int `json:"width"`
			Packed int `json:"packed"`
		} `json:"opaque"`
		Layout []map[string]interface{} `json:"layout"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &set))
	assert.Equal(t, 162, set.Opaque.Width)
	assert.Equal(t, 3, set.Opaque.Packed)
	assert.Len(t, set.Layout, 1)

	w, _ := do(t, h, http.MethodGet, "/api/atlas/opaque", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 18, img.Bounds().Dy())

	etag := w.Header().Get("ETag")
	assert.Equal(t, fmt.Sprintf(`"%d-opaque"`, set.Generation), etag)

	req := httptest.NewRequest(http.MethodGet, "/api/atlas/opaque", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestLightingAndScript(t *testing.T) {
	h := newTestServer(t, false)

	body := map[string]interface{}{
		"ambient":  map[string]float64{"r": 2, "g": 0.5, "b": -1},
		"sunlight": map[string]float64{"r": 0.1, "g": 0.2, "b": 0.3},
	}
	w, resp := do(t, h, http.MethodPut, "/api/lighting", body)
	require.Equal(t, http.StatusOK, w.Code)
	var l struct {
		Ambient struct{ R, G, B float64 } `json:"ambient"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &l))
	assert.Equal(t, 1.0, l.Ambient.R)
	assert.Equal(t, 0.5, l.Ambient.G)
	assert.Equal(t, 0.0, l.Ambient.B)

	w, _ = do(t, h, http.MethodPut, "/api/script", ScriptBody{Script: "fill();"})
	require.Equal(t, http.StatusOK, w.Code)
	_, resp = do(t, h, http.MethodGet, "/api/script", nil)
	assert.Equal(t, "fill();", decode[ScriptBody](t, resp.Data).Script)
}

func TestStatsAndMetrics(t *testing.T) {
	h := newTestServer(t, true)

	w, resp := do(t, h, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]interface{}](t, resp.Data)
	assert.Contains(t, stats, "editor")
	assert.Contains(t, stats, "server")
	assert.Equal(t, 0.0, stats["snapshots"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "editor_api_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/types", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
