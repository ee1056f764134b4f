package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// TradeArchiveStore is the slice of the trade store the archiver needs. The
// Postgres TradeStore satisfies it; deletion happens only after the archive
// object has been written.
type TradeArchiveStore interface {
	// ListBefore returns all trades created strictly before the cutoff,
	// oldest first.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)

	// DeleteBefore removes all trades created strictly before the cutoff and
	// returns the number deleted.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves aged trade audit rows out of the hot table into object
// storage as newline-delimited JSON, keeping the table bounded while the full
// history stays queryable offline.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	trades TradeArchiveStore
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		reader: reader,
		trades: trades,
		logger: logger.With("component", "archiver"),
		now:    time.Now,
	}
}

// ArchiveTrades uploads all trades older than the cutoff to
// archive/trades/YYYY-MM/<run timestamp>.jsonl and then deletes them from the
// store. The run timestamp in the key means repeated runs within a month never
// overwrite an earlier archive. Returns the number of trades archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := a.archivePath(before)
	if err := a.writer.Put(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	// Delete only what was uploaded. Trades inserted between the query and
	// here are newer than the cutoff, so the cutoff-based delete is safe.
	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(trades)), fmt.Errorf("s3blob: archive trades prune: %w", err)
	}

	a.logger.Info("trades archived",
		"path", path, "archived", len(trades), "deleted", deleted,
		"before", before.Format(time.RFC3339))
	return int64(len(trades)), nil
}

// ListArchives returns metadata for every trade archive object written so far.
func (a *Archiver) ListArchives(ctx context.Context) ([]domain.BlobInfo, error) {
	return a.reader.List(ctx, "archive/trades/")
}

// archivePath partitions archive keys by the cutoff's year-month, with the
// run timestamp as the object name:
//
//	archive/trades/2026-08/20260830T120000Z.jsonl
func (a *Archiver) archivePath(before time.Time) string {
	return fmt.Sprintf("archive/trades/%s/%s.jsonl",
		before.Format("2006-01"), a.now().UTC().Format("20060102T150405Z"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact line
// per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
