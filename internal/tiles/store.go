package tiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrTileNotFound is returned by Store.Tile for coordinates with no tile in
// the archive. It is a normal negative result, not a fault.
var ErrTileNotFound = errors.New("tile not found")

const (
	selectTileSQL = `
SELECT tile_data
FROM tiles
WHERE
    zoom_level = ?
    AND tile_column = ?
    AND tile_row = ?`

	selectMetadataSQL = `
SELECT
    name,
    value
FROM metadata`
)

// Store is a read-only accessor over an MBTiles archive. Rows are addressed
// in the storage (bottom-origin) convention. Lookups are safe for concurrent
// use; each request draws its own connection from the database/sql pool.
type Store struct {
	path string
	db   *sql.DB
}

// OpenStore opens the archive at path. A missing archive is a fatal
// configuration error: the store refuses to start rather than serve empty.
func OpenStore(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("tile archive '%s' does not exist: %w", path, err)
		}
		return nil, fmt.Errorf("stating tile archive: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("tile archive '%s' is a directory", path)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("opening read connection: %w", err)
	}

	return &Store{path: path, db: db}, nil
}

// Path returns the filesystem path of the archive.
func (s *Store) Path() string {
	return s.path
}

// Tile returns the raw image bytes stored at the given coordinate, or
// ErrTileNotFound when the archive holds nothing there.
func (s *Store) Tile(ctx context.Context, zoom, column, row int) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, selectTileSQL, zoom, column, row).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tile %d/%d/%d: %w", zoom, column, row, err)
	}
	return data, nil
}

// Metadata returns the archive metadata table as a map. MBTiles archives
// typically carry name, format and bounds entries; an archive without a
// metadata table yields an error, which callers may treat as non-fatal.
func (s *Store) Metadata(ctx context.Context) (meta map[string]string, err error) {
	rows, err := s.db.QueryContext(ctx, selectMetadataSQL)
	if err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cErr)
		}
	}()

	meta = make(map[string]string)
	for rows.Next() {
		var name, value string
		if err = rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		meta[name] = value
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	return meta, nil
}

// Close closes the underlying archive connection.
func (s *Store) Close() error {
	return s.db.Close()
}
