package tiles

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type coordinate struct {
	zoom, column, row int
}

// fakeSource records every lookup so tests can assert whether the archive
// was consulted at all.
type fakeSource struct {
	tiles   map[coordinate][]byte
	err     error
	lookups []coordinate
}

func (f *fakeSource) Tile(_ context.Context, zoom, column, row int) ([]byte, error) {
	f.lookups = append(f.lookups, coordinate{zoom, column, row})
	if f.err != nil {
		return nil, f.err
	}
	if data, ok := f.tiles[coordinate{zoom, column, row}]; ok {
		return data, nil
	}
	return nil, ErrTileNotFound
}

func TestServer_MalformedPath(t *testing.T) {
	paths := []string{
		"/",
		"/3",
		"/3/1",
		"/3/1/2/4",
		"/a/1/2",
		"/3/1/2.5",
		"/3/-1/2",
		"/3/1/-2",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			source := &fakeSource{}
			server := NewServer("127.0.0.1:0", source)

			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
			if len(source.lookups) != 0 {
				t.Errorf("GET %s triggered %d archive lookups, want 0", path, len(source.lookups))
			}
		})
	}
}

func TestServer_TileHit(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}

	// Stored bottom-origin at (3, 1, 2); clients address it top-origin as
	// row 2^3-1-2 = 5.
	source := &fakeSource{tiles: map[coordinate][]byte{{3, 1, 2}: data}}
	server := NewServer("127.0.0.1:0", source)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/3/1/5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /3/1/5 status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}

	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, data) {
		t.Errorf("Body = %v, want %v", body, data)
	}

	want := coordinate{3, 1, 2}
	if len(source.lookups) != 1 || source.lookups[0] != want {
		t.Errorf("Lookups = %v, want exactly %v", source.lookups, want)
	}
}

func TestServer_TileMiss(t *testing.T) {
	source := &fakeSource{tiles: map[coordinate][]byte{{3, 1, 2}: []byte("tile")}}
	server := NewServer("127.0.0.1:0", source)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/3/1/0", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /3/1/0 status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if len(source.lookups) != 1 {
		t.Errorf("Lookups = %v, want exactly one miss", source.lookups)
	}
}

func TestServer_OffGridCoordinate(t *testing.T) {
	source := &fakeSource{}
	server := NewServer("127.0.0.1:0", source)

	// Row 8 does not exist on the zoom 3 grid; no lookup should happen.
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/3/1/8", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /3/1/8 status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if len(source.lookups) != 0 {
		t.Errorf("GET /3/1/8 triggered %d archive lookups, want 0", len(source.lookups))
	}
}

func TestServer_LookupFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("database is locked")}
	server := NewServer("127.0.0.1:0", source)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/3/1/5", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestServer_EndToEnd(t *testing.T) {
	data := []byte("tile bytes")
	path := createArchive(t, []archiveTile{{zoom: 3, column: 1, row: 2, data: data}})

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ts := httptest.NewServer(NewServer("127.0.0.1:0", store))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/3/1/5")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, data) {
		t.Errorf("Body = %q, want %q", body, data)
	}
}
