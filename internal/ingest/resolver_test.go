package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genomehub/varimport/internal/store"
)

func openTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.Open("sqlite", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func int64p(v int64) *int64 { return &v }

func TestResolver_SymbolHintWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(0)

	kras, err := s.CreateGene(ctx, &store.Gene{
		GeneID: "ENSG00000133703", Symbol: "KRAS", Chrom: "12",
		Biotype: "protein_coding", Description: "authoritative",
	})
	require.NoError(t, err)

	// Positionally contained in another gene, but the hint must win.
	_, err = s.CreateGene(ctx, &store.Gene{
		GeneID: "ENSG_OTHER", Symbol: "OTHER", Chrom: "12",
		Start: int64p(25245000), End: int64p(25246000),
		Biotype: "protein_coding", Description: "overlapping",
	})
	require.NoError(t, err)

	cv := &CanonicalVariant{ID: "v1", Chrom: "12", Pos: 25245351, Ref: "C", Alt: "A", GeneHint: "KRAS"}
	g, err := r.Resolve(ctx, s, cv)
	require.NoError(t, err)
	assert.Equal(t, kras.ID, g.ID)
}

func TestResolver_PositionalContainment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(0)

	gene, err := s.CreateGene(ctx, &store.Gene{
		GeneID: "ENSG_1", Symbol: "TP53", Chrom: "17",
		Start: int64p(7668402), End: int64p(7687550),
		Biotype: "protein_coding", Description: "authoritative",
	})
	require.NoError(t, err)

	cv := &CanonicalVariant{ID: "v1", Chrom: "17", Pos: 7675000, Ref: "A", Alt: "G"}
	g, err := r.Resolve(ctx, s, cv)
	require.NoError(t, err)
	assert.Equal(t, gene.ID, g.ID)
}

func TestResolver_PlaceholderCreation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(0)

	cv := &CanonicalVariant{ID: "v1", Chrom: "5", Pos: 1050000, Ref: "A", Alt: "G"}
	g, err := r.Resolve(ctx, s, cv)
	require.NoError(t, err)

	assert.Equal(t, "GENE_5_1050000", g.Symbol)
	assert.Equal(t, "ENSG_5_1050000", g.GeneID)
	assert.Equal(t, "protein_coding", g.Biotype)
	require.NotNil(t, g.Start)
	require.NotNil(t, g.End)
	assert.Equal(t, int64(1049000), *g.Start)
	assert.Equal(t, int64(1051000), *g.End)
	assert.Contains(t, g.Description, "inferred from VCF variant at 5:1050000")
}

func TestResolver_PlaceholderUsesHintedSymbol(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(0)

	cv := &CanonicalVariant{ID: "v1", Chrom: "17", Pos: 43045000, Ref: "A", Alt: "G", GeneHint: "BRCA1"}
	g, err := r.Resolve(ctx, s, cv)
	require.NoError(t, err)
	assert.Equal(t, "BRCA1", g.Symbol)
}

func TestResolver_PaddingClampsToOne(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(0)

	cv := &CanonicalVariant{ID: "v1", Chrom: "1", Pos: 5, Ref: "A", Alt: "G"}
	g, err := r.Resolve(ctx, s, cv)
	require.NoError(t, err)
	require.NotNil(t, g.Start)
	assert.Equal(t, int64(1), *g.Start)
	assert.Equal(t, int64(1005), *g.End)
}

func TestResolver_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(0)

	first := &CanonicalVariant{ID: "v1", Chrom: "9", Pos: 500000, Ref: "A", Alt: "G"}
	second := &CanonicalVariant{ID: "v2", Chrom: "9", Pos: 500000, Ref: "C", Alt: "T"}

	g1, err := r.Resolve(ctx, s, first)
	require.NoError(t, err)
	g2, err := r.Resolve(ctx, s, second)
	require.NoError(t, err)

	assert.Equal(t, g1.ID, g2.ID, "resolving two variants at the same unmapped position must not create two placeholders")
}

func TestResolver_ConfigurablePadding(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(500)

	cv := &CanonicalVariant{ID: "v1", Chrom: "2", Pos: 10000, Ref: "A", Alt: "G"}
	g, err := r.Resolve(ctx, s, cv)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), *g.Start)
	assert.Equal(t, int64(10500), *g.End)
}

// racingStore simulates losing the read-then-create race: the symbol is
// absent on the first lookups, the create conflicts, and the re-fetch
// finds the winner's row.
type racingStore struct {
	store.Store
	winner    *store.Gene
	findCalls int
}

func (r *racingStore) FindGeneBySymbol(ctx context.Context, symbol string) (*store.Gene, error) {
	r.findCalls++
	if r.findCalls <= 1 {
		// Pre-create check: nothing there yet.
		return nil, nil
	}
	return r.winner, nil
}

func (r *racingStore) FindGeneByPosition(ctx context.Context, chrom string, pos int64) (*store.Gene, error) {
	return nil, nil
}

func (r *racingStore) CreateGene(ctx context.Context, g *store.Gene) (*store.Gene, error) {
	return nil, fmt.Errorf("insert gene: %w", store.ErrConflict)
}

func TestResolver_ConflictRefetch(t *testing.T) {
	winner := &store.Gene{ID: "row-1", Symbol: "GENE_3_777", GeneID: "ENSG_3_777"}
	s := &racingStore{winner: winner}
	r := NewResolver(0)

	cv := &CanonicalVariant{ID: "v1", Chrom: "3", Pos: 777, Ref: "A", Alt: "G"}
	g, err := r.Resolve(context.Background(), s, cv)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, g.ID)
}
