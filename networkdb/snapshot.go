package networkdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"tripsearch.onebusaway.org/internal/logging"
	"tripsearch.onebusaway.org/internal/network"
)

// ErrNoSnapshot is returned when nothing has been imported yet.
var ErrNoSnapshot = errors.New("no network snapshot imported")

type stopRow struct {
	ID         string  `db:"id"`
	Code       string  `db:"code"`
	Name       string  `db:"name"`
	Lat        float64 `db:"lat"`
	Lon        float64 `db:"lon"`
	Accessible bool    `db:"accessible"`
	Position   int     `db:"position"`
}

type lineRow struct {
	ID         string `db:"id"`
	Code       string `db:"code"`
	Name       string `db:"name"`
	Accessible bool   `db:"accessible"`
	Position   int    `db:"position"`
}

type lineStopRow struct {
	LineID    string `db:"line_id"`
	StopID    string `db:"stop_id"`
	StopIndex int    `db:"stop_index"`
	Sequence  int    `db:"sequence"`
}

// ImportMetadata describes the stored snapshot.
type ImportMetadata struct {
	SnapshotHash string `db:"snapshot_hash"`
	Source       string `db:"source"`
	ImportTime   int64  `db:"import_time"`
}

// ImportSnapshot replaces the stored network with stops and lines. It returns
// false without writing when the stored snapshot is already identical.
func (c *Client) ImportSnapshot(ctx context.Context, source string, stops []network.Stop, lines []network.Line) (bool, error) {
	hash := snapshotHash(stops, lines)

	existing, err := c.LastImport(ctx)
	switch {
	case err == nil && existing.SnapshotHash == hash:
		logging.LogOperation(c.logger, "network_snapshot_unchanged_skipping_import",
			slog.String("hash", hash[:8]))
		return false, nil
	case err != nil && !errors.Is(err, ErrNoSnapshot):
		return false, err
	}

	start := time.Now()
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("error starting import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"line_stops", "lines", "stops"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return false, fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	if err := insertStops(ctx, tx, stops); err != nil {
		return false, err
	}
	if err := insertLines(ctx, tx, lines); err != nil {
		return false, err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO import_metadata (id, snapshot_hash, source, import_time)
		VALUES (1, :snapshot_hash, :source, :import_time)
		ON CONFLICT (id) DO UPDATE SET
			snapshot_hash = excluded.snapshot_hash,
			source = excluded.source,
			import_time = excluded.import_time`,
		ImportMetadata{SnapshotHash: hash, Source: source, ImportTime: time.Now().Unix()})
	if err != nil {
		return false, fmt.Errorf("error updating import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("error committing network import: %w", err)
	}

	logging.LogOperation(c.logger, "network_snapshot_imported",
		slog.String("source", source),
		slog.Int("stops", len(stops)),
		slog.Int("lines", len(lines)),
		slog.Duration("duration", time.Since(start)))
	return true, nil
}

func insertStops(ctx context.Context, tx *sqlx.Tx, stops []network.Stop) error {
	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO stops (id, code, name, lat, lon, accessible, position)
		VALUES (:id, :code, :name, :lat, :lon, :accessible, :position)`)
	if err != nil {
		return fmt.Errorf("error preparing stop insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, s := range stops {
		row := stopRow{
			ID:         s.ID,
			Code:       s.Code,
			Name:       s.Name,
			Lat:        s.Location.Lat,
			Lon:        s.Location.Lon,
			Accessible: s.Accessible,
			Position:   i,
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("unable to create stop %q: %w", s.ID, err)
		}
	}
	return nil
}

func insertLines(ctx context.Context, tx *sqlx.Tx, lines []network.Line) error {
	lineStmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO lines (id, code, name, accessible, position)
		VALUES (:id, :code, :name, :accessible, :position)`)
	if err != nil {
		return fmt.Errorf("error preparing line insert: %w", err)
	}
	defer func() { _ = lineStmt.Close() }()

	memberStmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO line_stops (line_id, stop_id, stop_index, sequence)
		VALUES (:line_id, :stop_id, :stop_index, :sequence)`)
	if err != nil {
		return fmt.Errorf("error preparing line stop insert: %w", err)
	}
	defer func() { _ = memberStmt.Close() }()

	for i, l := range lines {
		row := lineRow{ID: l.ID, Code: l.Code, Name: l.Name, Accessible: l.Accessible, Position: i}
		if _, err := lineStmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("unable to create line %q: %w", l.ID, err)
		}
		for j, ls := range l.Stops {
			member := lineStopRow{LineID: l.ID, StopID: ls.StopID, StopIndex: j, Sequence: ls.Sequence}
			if _, err := memberStmt.ExecContext(ctx, member); err != nil {
				return fmt.Errorf("unable to add stop %q to line %q: %w", ls.StopID, l.ID, err)
			}
		}
	}
	return nil
}

// GetStopsSnapshot returns the stored stops in import order.
func (c *Client) GetStopsSnapshot(ctx context.Context) ([]network.Stop, error) {
	return selectStops(ctx, c.db)
}

// GetLinesSnapshot returns the stored lines in import order with their stops in
// travel order.
func (c *Client) GetLinesSnapshot(ctx context.Context) ([]network.Line, error) {
	return selectLines(ctx, c.db)
}

// Snapshot reads stops and lines inside one transaction so that an import
// committed in between cannot pair them with each other's version.
func (c *Client) Snapshot(ctx context.Context) ([]network.Stop, []network.Line, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error starting snapshot read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stops, err := selectStops(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	lines, err := selectLines(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	return stops, lines, nil
}

func selectStops(ctx context.Context, q sqlx.QueryerContext) ([]network.Stop, error) {
	var rows []stopRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT id, code, name, lat, lon, accessible, position
		FROM stops
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("error reading stops: %w", err)
	}

	stops := make([]network.Stop, len(rows))
	for i, r := range rows {
		stops[i] = network.Stop{
			ID:         r.ID,
			Code:       r.Code,
			Name:       r.Name,
			Location:   network.Coordinate{Lat: r.Lat, Lon: r.Lon},
			Accessible: r.Accessible,
		}
	}
	return stops, nil
}

func selectLines(ctx context.Context, q sqlx.QueryerContext) ([]network.Line, error) {
	var rows []lineRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT id, code, name, accessible, position
		FROM lines
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("error reading lines: %w", err)
	}

	var members []lineStopRow
	err = sqlx.SelectContext(ctx, q, &members, `
		SELECT line_id, stop_id, stop_index, sequence
		FROM line_stops
		ORDER BY line_id, stop_index`)
	if err != nil {
		return nil, fmt.Errorf("error reading line stops: %w", err)
	}

	byLine := make(map[string][]network.LineStop, len(rows))
	for _, m := range members {
		byLine[m.LineID] = append(byLine[m.LineID], network.LineStop{StopID: m.StopID, Sequence: m.Sequence})
	}

	lines := make([]network.Line, len(rows))
	for i, r := range rows {
		lines[i] = network.Line{
			ID:         r.ID,
			Code:       r.Code,
			Name:       r.Name,
			Accessible: r.Accessible,
			Stops:      byLine[r.ID],
		}
	}
	return lines, nil
}

// LastImport returns the metadata of the stored snapshot or ErrNoSnapshot.
func (c *Client) LastImport(ctx context.Context) (ImportMetadata, error) {
	var meta ImportMetadata
	err := c.db.GetContext(ctx, &meta, `
		SELECT snapshot_hash, source, import_time
		FROM import_metadata
		WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportMetadata{}, ErrNoSnapshot
	}
	if err != nil {
		return ImportMetadata{}, fmt.Errorf("error checking import metadata: %w", err)
	}
	return meta, nil
}

// TableCounts returns the number of rows per table.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 3)
	for _, table := range []string{"stops", "lines", "line_stops"} {
		var n int
		if err := c.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("error counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func snapshotHash(stops []network.Stop, lines []network.Line) string {
	h := sha256.New()
	for _, s := range stops {
		fmt.Fprintf(h, "s|%s|%s|%s|%.7f|%.7f|%t\n", s.ID, s.Code, s.Name, s.Location.Lat, s.Location.Lon, s.Accessible)
	}
	for _, l := range lines {
		fmt.Fprintf(h, "l|%s|%s|%s|%t", l.ID, l.Code, l.Name, l.Accessible)
		for _, ls := range l.Stops {
			fmt.Fprintf(h, "|%s:%d", ls.StopID, ls.Sequence)
		}
		fmt.Fprintln(h)
	}
	return hex.EncodeToString(h.Sum(nil))
}
