package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/genomehub/varimport/internal/store"
)

// DefaultPadding is the coordinate window applied around the observed
// position when synthesizing a placeholder gene. It is a heuristic
// stand-in, not a biological boundary.
const DefaultPadding int64 = 1000

// Resolver finds or creates the gene owning a canonical variant.
// Resolution order: exact symbol hint match, positional containment,
// inferred placeholder creation.
type Resolver struct {
	padding int64
	logger  *zap.Logger
}

// NewResolver creates a resolver with the given placeholder padding
// window. A padding of 0 or less falls back to DefaultPadding.
func NewResolver(padding int64) *Resolver {
	if padding <= 0 {
		padding = DefaultPadding
	}
	return &Resolver{padding: padding, logger: zap.NewNop()}
}

// SetLogger sets the logger for resolution events.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Resolve returns the gene owning the variant, creating a placeholder
// when no existing gene matches. The procedure is idempotent under retry:
// re-resolving a variant after a prior placeholder creation returns the
// existing placeholder.
func (r *Resolver) Resolve(ctx context.Context, s store.Store, v *CanonicalVariant) (*store.Gene, error) {
	if v.GeneHint != "" {
		g, err := s.FindGeneBySymbol(ctx, v.GeneHint)
		if err != nil {
			return nil, err
		}
		if g != nil {
			return g, nil
		}
	}

	g, err := s.FindGeneByPosition(ctx, v.Chrom, v.Pos)
	if err != nil {
		return nil, err
	}
	if g != nil {
		return g, nil
	}

	return r.createPlaceholder(ctx, s, v)
}

func (r *Resolver) createPlaceholder(ctx context.Context, s store.Store, v *CanonicalVariant) (*store.Gene, error) {
	symbol := v.GeneHint
	if symbol == "" {
		symbol = fmt.Sprintf("GENE_%s_%d", v.Chrom, v.Pos)
	}

	// Re-check by symbol: an earlier record may already have created the
	// placeholder under the synthesized name.
	existing, err := s.FindGeneBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	start := v.Pos - r.padding
	if start < 1 {
		start = 1
	}
	end := v.Pos + r.padding

	gene := &store.Gene{
		GeneID:  fmt.Sprintf("ENSG_%s_%d", v.Chrom, v.Pos),
		Symbol:  symbol,
		Chrom:   v.Chrom,
		Start:   &start,
		End:     &end,
		Biotype: "protein_coding",
		Description: fmt.Sprintf(
			"Placeholder inferred from VCF variant at %s:%d. Coordinates are a +/-%dbp window around the observed position, not a biological gene boundary.",
			v.Chrom, v.Pos, r.padding),
	}

	created, err := s.CreateGene(ctx, gene)
	if errors.Is(err, store.ErrConflict) {
		// Lost a read-then-create race; the winner's row is authoritative.
		refetched, ferr := s.FindGeneBySymbol(ctx, symbol)
		if ferr != nil {
			return nil, ferr
		}
		if refetched != nil {
			return refetched, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("created placeholder gene",
		zap.String("symbol", created.Symbol),
		zap.String("chrom", created.Chrom),
		zap.Int64("pos", v.Pos))

	return created, nil
}
