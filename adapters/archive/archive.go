// Package archive keeps assembled reports in an embedded BadgerDB store, for
// deployments without a database.
package archive

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"qrnglab/domain/core"
	"qrnglab/internal/errors"
	"qrnglab/internal/report"
)

const (
	reportPrefix = "report/"
	entryPrefix  = "entry/"
)

// Config holds configuration for the archive.
type Config struct {
	// Path is the directory for BadgerDB files. Empty opens an in-memory store.
	Path string

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	Logger *zap.Logger
}

// zapLogger adapts zap to BadgerDB's Logger interface.
type zapLogger struct {
	logger *zap.SugaredLogger
}

func (l *zapLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *zapLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *zapLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// Archive stores reports keyed by id, with a small entry record per report for
// listing.
type Archive struct {
	db *badger.DB
}

// Open opens the archive at cfg.Path, creating the directory when needed.
func Open(cfg Config) (*Archive, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapLogger{logger: cfg.Logger.Named("archive").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// OpenInMemory opens an archive that is lost on Close.
func OpenInMemory() (*Archive, error) {
	return Open(Config{})
}

// Close releases the store
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveReport stores rep and its listing entry in one transaction.
func (a *Archive) SaveReport(ctx context.Context, rep *report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	entry, err := json.Marshal(rep.Entry())
	if err != nil {
		return errors.Wrap(err, "failed to encode report entry")
	}
	return a.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(reportPrefix+rep.ID.String()), data); err != nil {
			return err
		}
		return txn.Set([]byte(entryPrefix+rep.ID.String()), entry)
	})
}

// GetReport loads a report by id
func (a *Archive) GetReport(ctx context.Context, id core.ReportID) (*report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rep report.Report
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportPrefix + id.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rep)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NotFound("report " + id.String())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read report %s", id)
	}
	return &rep, nil
}

// ListReports returns up to limit entries, most recent first.
func (a *Archive) ListReports(ctx context.Context, limit int) ([]report.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []report.Entry
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e report.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reports")
	}

	// newest first
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].GeneratedAt.After(entries[j].GeneratedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
