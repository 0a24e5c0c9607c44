// Package store provides persistence for genes and variants behind a
// transactional repository port.
package store

import (
	"context"
	"errors"
)

// ErrConflict is returned by Create operations when a unique constraint
// is violated (the row already exists).
var ErrConflict = errors.New("store: unique constraint violation")

// Gene is a stored gene row. Start and End are nil for genes without
// known coordinates.
type Gene struct {
	ID          string // opaque row identifier (uuid)
	GeneID      string // stable external gene id (e.g., ENSG00000133703)
	Symbol      string // gene symbol (e.g., KRAS)
	Chrom       string // normalized chromosome
	Start       *int64 // 1-based start position
	End         *int64 // 1-based end position, inclusive
	Biotype     string
	Description string // provenance (e.g., "inferred from VCF variant at ...")
}

// Contains returns true if the given position is within the gene boundaries.
func (g *Gene) Contains(pos int64) bool {
	return g.Start != nil && g.End != nil && pos >= *g.Start && pos <= *g.End
}

// Variant is a stored variant row.
type Variant struct {
	ID                   string // opaque row identifier (uuid)
	VariantID            string // stable identifier (rs id or chrom_pos_ref_alt)
	GeneID               string // owning gene row id
	Chrom                string
	Pos                  int64
	Ref                  string
	Alt                  string
	Type                 string // SNV, INS, DEL, COMPLEX
	Frequency            *float64
	ClinicalSignificance string
	Metadata             string // JSON audit blob (qual, filter, info, samples)
}

// Store is the repository port used by the ingestion pipeline.
// Find operations return (nil, nil) when no row matches.
type Store interface {
	FindGeneBySymbol(ctx context.Context, symbol string) (*Gene, error)
	FindGeneByPosition(ctx context.Context, chrom string, pos int64) (*Gene, error)
	CreateGene(ctx context.Context, g *Gene) (*Gene, error)

	FindVariantByID(ctx context.Context, variantID string) (*Variant, error)
	FindVariantByLocus(ctx context.Context, chrom string, pos int64, ref, alt string) (*Variant, error)
	CreateVariant(ctx context.Context, v *Variant) (*Variant, error)

	// WithTx runs fn against a transaction-scoped store. The transaction
	// commits when fn returns nil and rolls back otherwise. Calling WithTx
	// on an already transaction-scoped store reuses the open transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
