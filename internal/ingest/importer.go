package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/genomehub/varimport/internal/store"
	"github.com/genomehub/varimport/internal/vcf"
)

// DefaultBatchSize is the number of records committed per transaction.
const DefaultBatchSize = 100

// Importer drives the end-to-end ingestion pipeline: parse, transform,
// resolve, deduplicate, and commit in batched transactions. One record's
// failure never aborts its batch.
type Importer struct {
	store     store.Store
	resolver  *Resolver
	batchSize int
	logger    *zap.Logger
	progress  func(processed, total int)
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets the per-transaction batch size.
func WithBatchSize(n int) Option {
	return func(imp *Importer) {
		if n > 0 {
			imp.batchSize = n
		}
	}
}

// WithPadding sets the placeholder-gene padding window.
func WithPadding(bp int64) Option {
	return func(imp *Importer) {
		imp.resolver = NewResolver(bp)
	}
}

// WithLogger sets the logger for import events.
func WithLogger(l *zap.Logger) Option {
	return func(imp *Importer) {
		imp.logger = l
	}
}

// WithProgress sets a callback invoked after each processed record.
func WithProgress(fn func(processed, total int)) Option {
	return func(imp *Importer) {
		imp.progress = fn
	}
}

// New creates an importer writing through the given store.
func New(s store.Store, opts ...Option) *Importer {
	imp := &Importer{
		store:     s,
		resolver:  NewResolver(DefaultPadding),
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	imp.resolver.SetLogger(imp.logger)
	return imp
}

// Import ingests raw VCF text and returns the aggregated result.
//
// A parse-level failure (no usable header) returns a nil result and an
// error. Per-record failures are recovered into Result.Errors; duplicates
// into Result.Warnings. A transaction-level storage failure returns the
// partial result together with an error: batches already committed stay
// committed, remaining batches are not attempted.
func (imp *Importer) Import(ctx context.Context, text string) (*Result, error) {
	p, err := vcf.NewParserFromString(text)
	if err != nil {
		return nil, fmt.Errorf("vcf parse failed entirely: %w", err)
	}
	p.SetLogger(imp.logger)

	var records []*vcf.Record
	for {
		rec, err := p.Next()
		if err != nil {
			return nil, fmt.Errorf("vcf parse failed entirely: %w", err)
		}
		if rec == nil {
			break
		}
		records = append(records, rec)
	}

	res := &Result{
		Total:        len(records),
		SkippedLines: p.Stats().Skipped,
	}

	imp.logger.Info("starting import",
		zap.Int("records", res.Total),
		zap.Int("skipped_lines", res.SkippedLines),
		zap.Int("batch_size", imp.batchSize))

	processed := 0
	for start := 0; start < len(records); start += imp.batchSize {
		// Cancellation is honored only between batches; a batch is never
		// abandoned mid-transaction.
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("import canceled, %d records committed: %w", res.Successful, err)
		}

		end := min(start+imp.batchSize, len(records))
		batch := records[start:end]

		err := imp.store.WithTx(ctx, func(tx store.Store) error {
			for _, rec := range batch {
				imp.processRecord(ctx, tx, rec, res)
				processed++
				if imp.progress != nil {
					imp.progress(processed, res.Total)
				}
			}
			return nil
		})
		if err != nil {
			// Storage-level failure: prior batches stay committed.
			return res, fmt.Errorf("storage failure mid-import, %d records committed: %w", res.Successful, err)
		}
	}

	imp.logger.Info("import complete",
		zap.Int("total", res.Total),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
		zap.Int("warnings", len(res.Warnings)))

	return res, nil
}

// processRecord runs one record through transform, resolve, dedup, and
// write. All failures are recorded in the result; none abort the batch.
func (imp *Importer) processRecord(ctx context.Context, tx store.Store, rec *vcf.Record, res *Result) {
	cv := ToCanonical(rec)

	gene, err := imp.resolver.Resolve(ctx, tx, cv)
	if err != nil {
		imp.recordError(res, cv, fmt.Sprintf("resolve gene: %v", err))
		return
	}

	existing, err := FindDuplicate(ctx, tx, cv)
	if err != nil {
		imp.recordError(res, cv, fmt.Sprintf("duplicate check: %v", err))
		return
	}
	if existing != nil {
		res.addWarning(cv.ID, "already exists, skipped")
		return
	}

	metadata, err := json.Marshal(cv.Metadata)
	if err != nil {
		imp.recordError(res, cv, fmt.Sprintf("encode metadata: %v", err))
		return
	}

	_, err = tx.CreateVariant(ctx, &store.Variant{
		VariantID:            cv.ID,
		GeneID:               gene.ID,
		Chrom:                cv.Chrom,
		Pos:                  cv.Pos,
		Ref:                  cv.Ref,
		Alt:                  cv.Alt,
		Type:                 string(cv.Type),
		Frequency:            cv.Frequency,
		ClinicalSignificance: cv.ClinicalSignificance,
		Metadata:             string(metadata),
	})
	if errors.Is(err, store.ErrConflict) {
		res.addWarning(cv.ID, "already exists, skipped")
		return
	}
	if err != nil {
		imp.recordError(res, cv, fmt.Sprintf("write variant: %v", err))
		return
	}

	res.Successful++
}

func (imp *Importer) recordError(res *Result, cv *CanonicalVariant, msg string) {
	res.addError(cv.ID, msg)
	imp.logger.Warn("record failed",
		zap.String("variant", cv.ID),
		zap.String("reason", msg))
}

// FileResult pairs one imported file with its outcome.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// ImportFiles imports several independent files concurrently, at most
// workers at a time. Each import owns its own result; batches within any
// single import remain sequential. Results are returned in input order.
func (imp *Importer) ImportFiles(ctx context.Context, paths []string, workers int) []FileResult {
	if workers <= 0 {
		workers = 1
	}

	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			results[i] = imp.importFile(ctx, path)
			return nil
		})
	}
	g.Wait()

	return results
}

func (imp *Importer) importFile(ctx context.Context, path string) FileResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("read vcf file: %w", err)}
	}

	// Transparently decompress gzipped VCFs.
	if len(raw) > 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return FileResult{Path: path, Err: fmt.Errorf("read gzipped vcf: %w", err)}
		}
		raw, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return FileResult{Path: path, Err: fmt.Errorf("read gzipped vcf: %w", err)}
		}
	}

	res, err := imp.Import(ctx, string(raw))
	return FileResult{Path: path, Result: res, Err: err}
}
