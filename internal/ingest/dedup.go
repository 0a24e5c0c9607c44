package ingest

import (
	"context"

	"github.com/genomehub/varimport/internal/store"
)

// FindDuplicate returns an existing stored variant matching the candidate,
// or nil when the candidate is new. A candidate is a duplicate when its
// identifier matches an existing variant, or when its
// (chrom, pos, ref, alt) tuple matches an existing row regardless of gene
// association.
func FindDuplicate(ctx context.Context, s store.Store, v *CanonicalVariant) (*store.Variant, error) {
	existing, err := s.FindVariantByID(ctx, v.ID)
	if err != nil || existing != nil {
		return existing, err
	}

	return s.FindVariantByLocus(ctx, v.Chrom, v.Pos, v.Ref, v.Alt)
}
