package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gridcrop/internal/config"
	"gridcrop/internal/grid"
	"gridcrop/internal/session"
)

const testSessionID = "test-session"

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.MaxUploadBytes = 1 << 20
	srv, err := NewServer(cfg, session.NewMemoryStore[*session.Session]())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	return srv
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func do(t *testing.T, srv *Server, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: cookieName, Value: testSessionID})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, srv *Server, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadField, name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return do(t, srv, http.MethodPost, "/upload", mw.FormDataContentType(), body.Bytes())
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode state: %v (body %q)", err, rec.Body.String())
	}
	return snap
}

func TestHandleIndex(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Upload an image to start.") {
		t.Error("Expected empty-state prompt in body")
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("Expected session cookie to be set")
	}
}

func TestHandleIndex_UnknownPath(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandleUpload(t *testing.T) {
	srv := testServer(t)
	rec := upload(t, srv, "photo.png", pngBytes(t, 90, 60))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeState(t, rec)
	if !snap.HasImage {
		t.Error("Expected image to be loaded")
	}
	if snap.Filename != "photo.png" {
		t.Errorf("Expected filename photo.png, got %q", snap.Filename)
	}
	if snap.Source.W != 90 || snap.Source.H != 60 {
		t.Errorf("Expected source 90x60, got %+v", snap.Source)
	}
	if len(snap.Vertical) != 2 || len(snap.Horizontal) != 2 {
		t.Errorf("Expected 3x3 grid, got %d/%d lines", len(snap.Vertical), len(snap.Horizontal))
	}
}

func TestHandleUpload_NotAnImage(t *testing.T) {
	srv := testServer(t)
	rec := upload(t, srv, "notes.txt", []byte("hello"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestHandleUpload_WrongMethod(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/upload", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHandleGrid(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "photo.png", pngBytes(t, 90, 60))

	rec := do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte("cols=4&rows=2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	snap := decodeState(t, rec)
	if snap.Dimensions != (grid.Dimensions{Cols: 4, Rows: 2}) {
		t.Errorf("Expected 4x2, got %+v", snap.Dimensions)
	}
	if len(snap.Vertical) != 3 || len(snap.Horizontal) != 1 {
		t.Errorf("Expected 3 vertical and 1 horizontal line, got %d/%d", len(snap.Vertical), len(snap.Horizontal))
	}

	rec = do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte("cols=11&rows=x"))
	snap = decodeState(t, rec)
	if snap.Dimensions != (grid.Dimensions{Cols: 4, Rows: 2}) {
		t.Errorf("Expected out-of-range values to be ignored, got %+v", snap.Dimensions)
	}
}

func TestHandlePointer_DragAndReset(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "photo.png", pngBytes(t, 90, 60))

	// canvas is 90 wide, shown at 180 css px: vertical line 0 is at client x=60
	ev := `{"clientX":60,"clientY":30,"boxLeft":0,"boxTop":0,"boxWidth":180,"boxHeight":120}`
	rec := do(t, srv, http.MethodPost, "/pointer/down", "application/json", []byte(ev))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var fb pointerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &fb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !fb.PreventDefault || fb.Cursor != "ew-resize" {
		t.Errorf("Expected drag start on column line, got %+v", fb.Feedback)
	}

	ev = `{"clientX":90,"clientY":30,"boxLeft":0,"boxTop":0,"boxWidth":180,"boxHeight":120}`
	rec = do(t, srv, http.MethodPost, "/pointer/move", "application/json", []byte(ev))
	if err := json.Unmarshal(rec.Body.Bytes(), &fb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !fb.Changed {
		t.Error("Expected move to change the grid")
	}
	if got := fb.State.Vertical[0]; got < 0.49 || got > 0.51 {
		t.Errorf("Expected line 0 near 0.5, got %v", got)
	}

	do(t, srv, http.MethodPost, "/pointer/up", "", nil)
	rec = do(t, srv, http.MethodPost, "/grid/reset", "", nil)
	snap := decodeState(t, rec)
	if snap.Drag.Active {
		t.Error("Expected drag to be released")
	}
	if got := snap.Vertical[0]; got < 0.33 || got > 0.34 {
		t.Errorf("Expected reset to 1/3, got %v", got)
	}
}

func TestHandlePointer_BadBody(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/pointer/down", "application/json", []byte("{"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/pointer/wiggle", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandlePreview(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/preview.png", "", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 without image, got %d", rec.Code)
	}

	upload(t, srv, "photo.png", pngBytes(t, 90, 60))
	rec = do(t, srv, http.MethodGet, "/preview.png", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 90 || b.Dy() != 60 {
		t.Errorf("Expected 90x60 preview, got %v", b)
	}
}

func TestHandleCropAndExports(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "photo.png", pngBytes(t, 90, 60))
	do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte("cols=3&rows=2"))

	rec := do(t, srv, http.MethodPost, "/crop", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp cropResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cells) != 6 {
		t.Fatalf("Expected 6 cells, got %d", len(resp.Cells))
	}
	for i, c := range resp.Cells {
		if c.CellNumber != i+1 || c.Width != 30 || c.Height != 30 {
			t.Errorf("cell %d: got %+v", i, c)
		}
	}

	rec = do(t, srv, http.MethodGet, "/cells/4.png", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for cell, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "crop_4.png") {
		t.Errorf("Expected crop_4.png attachment, got %q", cd)
	}
	if rec := do(t, srv, http.MethodGet, "/cells/7.png", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing cell, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/export.zip", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for zip, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cropped_images_2024-03-09.zip") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 6 || zr.File[0].Name != "crop_1.png" {
		t.Errorf("Unexpected zip entries: %d, first %q", len(zr.File), zr.File[0].Name)
	}

	rec = do(t, srv, http.MethodGet, "/export.pdf", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for pdf, got %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("Expected PDF body")
	}
}

func TestExports_WithoutResults(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/export.zip", "/export.pdf", "/cells/1.png"} {
		rec := do(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: expected 409, got %d", path, rec.Code)
		}
	}
	if rec := do(t, srv, http.MethodPost, "/crop", "", nil); rec.Code != http.StatusConflict {
		t.Errorf("crop: expected 409, got %d", rec.Code)
	}
}

func TestHandleClear(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "photo.png", pngBytes(t, 90, 60))
	do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte("cols=5&rows=5"))
	do(t, srv, http.MethodPost, "/crop", "", nil)

	rec := do(t, srv, http.MethodPost, "/clear", "", nil)
	snap := decodeState(t, rec)
	if snap.HasImage || snap.Results != 0 {
		t.Errorf("Expected cleared session, got %+v", snap)
	}
	if snap.Dimensions != grid.DefaultDimensions() {
		t.Errorf("Expected 3x3 after clear, got %+v", snap.Dimensions)
	}
}

func TestHandleColor(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/color", "application/x-www-form-urlencoded", []byte("color=%23FF0000"))
	if got := decodeState(t, rec).Color; got != "#ff0000" {
		t.Errorf("Expected #ff0000, got %q", got)
	}
	rec = do(t, srv, http.MethodPost, "/color", "application/x-www-form-urlencoded", []byte("color=nope"))
	if got := decodeState(t, rec).Color; got != "#ff0000" {
		t.Errorf("Expected invalid colour to be ignored, got %q", got)
	}
}

func TestStatic(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/static/editor.js", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != assetCacheControl {
		t.Errorf("Expected cache header, got %q", rec.Header().Get("Cache-Control"))
	}
}

func TestPruneLoop_StopsOnCancel(t *testing.T) {
	srv := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.PruneLoop(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PruneLoop did not return after cancel")
	}
}

func TestHandleUpload_HugeDimensions(t *testing.T) {
	srv := testServer(t)
	b := pngBytes(t, 4, 4)
	// claim 60000x60000 in the IHDR chunk
	binary.BigEndian.PutUint32(b[16:20], 60000)
	binary.BigEndian.PutUint32(b[20:24], 60000)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))

	rec := upload(t, srv, "bomb.png", b)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
	if snap := decodeState(t, do(t, srv, http.MethodGet, "/state", "", nil)); snap.HasImage {
		t.Error("Expected session to stay without image")
	}
}

func TestHandleCrop_TinyImageReportsEveryCell(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "tiny.png", pngBytes(t, 9, 9))
	do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte("cols=10&rows=10"))

	rec := do(t, srv, http.MethodPost, "/crop", "", nil)
	var resp cropResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cells) != 100 {
		t.Fatalf("Expected 100 cells, got %d", len(resp.Cells))
	}
	var empty *CellInfo
	for i := range resp.Cells {
		c := &resp.Cells[i]
		if (c.Width == 0 || c.Height == 0) != (c.URL == "") {
			t.Errorf("cell %d: url %q does not match size %dx%d", c.CellNumber, c.URL, c.Width, c.Height)
		}
		if c.URL == "" && empty == nil {
			empty = c
		}
	}
	if empty == nil {
		t.Fatal("Expected at least one empty cell")
	}
	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/cells/%d.png", empty.CellNumber), "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for empty cell, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/export.zip", "", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected zip of the non-empty cells, got %d", rec.Code)
	}
}

func TestHandleGrid_AfterClear(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "photo.png", pngBytes(t, 90, 60))
	do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte("cols=5&rows=5"))

	snap := decodeState(t, do(t, srv, http.MethodPost, "/clear", "", nil))
	if snap.Dimensions != grid.DefaultDimensions() {
		t.Fatalf("Expected 3x3 after clear, got %+v", snap.Dimensions)
	}
	// the page posts both selectors, synced from the returned state
	body := fmt.Sprintf("cols=4&rows=%d", snap.Dimensions.Rows)
	snap = decodeState(t, do(t, srv, http.MethodPost, "/grid", "application/x-www-form-urlencoded", []byte(body)))
	if snap.Dimensions != (grid.Dimensions{Cols: 4, Rows: 3}) {
		t.Errorf("Expected 4x3, got %+v", snap.Dimensions)
	}
}

func TestHandlePointer_LastMoveBeforeUpWins(t *testing.T) {
	srv := testServer(t)
	upload(t, srv, "photo.png", pngBytes(t, 90, 60))

	move := func(kind string, x float64) {
		ev := fmt.Sprintf(`{"clientX":%v,"clientY":30,"boxLeft":0,"boxTop":0,"boxWidth":180,"boxHeight":120}`, x)
		if rec := do(t, srv, http.MethodPost, "/pointer/"+kind, "application/json", []byte(ev)); rec.Code != http.StatusOK {
			t.Fatalf("%s: got %d", kind, rec.Code)
		}
	}
	move("down", 60)
	move("move", 70)
	move("move", 84)
	do(t, srv, http.MethodPost, "/pointer/up", "", nil)

	snap := decodeState(t, do(t, srv, http.MethodGet, "/state", "", nil))
	if got := snap.Vertical[0]; got < 0.466 || got > 0.467 {
		t.Errorf("Expected line at the last move (42/90), got %v", got)
	}
}

func TestEditorScript(t *testing.T) {
	srv := testServer(t)
	body := do(t, srv, http.MethodGet, "/static/editor.js", "", nil).Body.String()
	for _, want := range []string{
		`select[name=cols]").value = String(state.dimensions.cols)`,
		`select[name=rows]").value = String(state.dimensions.rows)`,
		"queuedMove = pointerBody(ev)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected editor script to contain %q", want)
		}
	}
}
