package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()

	s, err := Open("sqlite", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func int64p(v int64) *int64 { return &v }

func TestSQLStore_GeneRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGene(ctx, &Gene{
		GeneID:      "ENSG00000133703",
		Symbol:      "KRAS",
		Chrom:       "12",
		Start:       int64p(25205246),
		End:         int64p(25250929),
		Biotype:     "protein_coding",
		Description: "imported from reference annotation",
	})
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)

	found, err := s.FindGeneBySymbol(ctx, "KRAS")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID, found.ID)
	assert.Equal(t, "ENSG00000133703", found.GeneID)
	require.NotNil(t, found.Start)
	assert.Equal(t, int64(25205246), *found.Start)

	missing, err := s.FindGeneBySymbol(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLStore_FindGeneByPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateGene(ctx, &Gene{
		GeneID: "ENSG_A", Symbol: "A", Chrom: "12",
		Start: int64p(100), End: int64p(200),
		Biotype: "protein_coding", Description: "test",
	})
	require.NoError(t, err)

	// No coordinates: must never match positional lookup.
	_, err = s.CreateGene(ctx, &Gene{
		GeneID: "ENSG_B", Symbol: "B", Chrom: "12",
		Biotype: "protein_coding", Description: "test",
	})
	require.NoError(t, err)

	g, err := s.FindGeneByPosition(ctx, "12", 150)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "A", g.Symbol)

	// Boundaries are inclusive.
	g, err = s.FindGeneByPosition(ctx, "12", 200)
	require.NoError(t, err)
	require.NotNil(t, g)

	g, err = s.FindGeneByPosition(ctx, "12", 201)
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = s.FindGeneByPosition(ctx, "13", 150)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestSQLStore_GeneConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateGene(ctx, &Gene{
		GeneID: "ENSG_1", Symbol: "TP53", Chrom: "17",
		Biotype: "protein_coding", Description: "test",
	})
	require.NoError(t, err)

	_, err = s.CreateGene(ctx, &Gene{
		GeneID: "ENSG_2", Symbol: "TP53", Chrom: "17",
		Biotype: "protein_coding", Description: "test",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSQLStore_VariantRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGene(ctx, &Gene{
		GeneID: "ENSG_1", Symbol: "KRAS", Chrom: "12",
		Biotype: "protein_coding", Description: "test",
	})
	require.NoError(t, err)

	freq := 0.001
	v, err := s.CreateVariant(ctx, &Variant{
		VariantID:            "rs121913530",
		GeneID:               g.ID,
		Chrom:                "12",
		Pos:                  25245351,
		Ref:                  "C",
		Alt:                  "A",
		Type:                 "SNV",
		Frequency:            &freq,
		ClinicalSignificance: "Pathogenic",
		Metadata:             `{"filter":"PASS"}`,
	})
	require.NoError(t, err)

	byID, err := s.FindVariantByID(ctx, "rs121913530")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, v.ID, byID.ID)
	require.NotNil(t, byID.Frequency)
	assert.InDelta(t, 0.001, *byID.Frequency, 1e-9)
	assert.Equal(t, "Pathogenic", byID.ClinicalSignificance)

	byLocus, err := s.FindVariantByLocus(ctx, "12", 25245351, "C", "A")
	require.NoError(t, err)
	require.NotNil(t, byLocus)
	assert.Equal(t, v.ID, byLocus.ID)

	// Same locus, different id: still a conflict on the tuple.
	_, err = s.CreateVariant(ctx, &Variant{
		VariantID: "other_id", GeneID: g.ID,
		Chrom: "12", Pos: 25245351, Ref: "C", Alt: "A",
		Type: "SNV", Metadata: "{}",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSQLStore_WithTxCommitAndRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		_, err := tx.CreateGene(ctx, &Gene{
			GeneID: "ENSG_1", Symbol: "BRCA1", Chrom: "17",
			Biotype: "protein_coding", Description: "test",
		})
		return err
	})
	require.NoError(t, err)

	g, err := s.FindGeneBySymbol(ctx, "BRCA1")
	require.NoError(t, err)
	require.NotNil(t, g)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx Store) error {
		if _, err := tx.CreateGene(ctx, &Gene{
			GeneID: "ENSG_2", Symbol: "BRCA2", Chrom: "13",
			Biotype: "protein_coding", Description: "test",
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	g, err = s.FindGeneBySymbol(ctx, "BRCA2")
	require.NoError(t, err)
	assert.Nil(t, g, "rolled-back gene must not be visible")
}

func TestSQLStore_WithTxNested(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		return tx.WithTx(ctx, func(inner Store) error {
			_, err := inner.CreateGene(ctx, &Gene{
				GeneID: "ENSG_1", Symbol: "EGFR", Chrom: "7",
				Biotype: "protein_coding", Description: "test",
			})
			return err
		})
	})
	require.NoError(t, err)

	g, err := s.FindGeneBySymbol(ctx, "EGFR")
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: genes.symbol (2067)"), true},
		{"postgres duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "genes_symbol_key" (SQLSTATE 23505)`), true},
		{"duckdb", errors.New(`Constraint Error: Duplicate key "symbol: KRAS" violates unique constraint`), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConflict(tt.err))
		})
	}
}

func TestSQLStore_StorageErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &SQLStore{db: db, q: db, driver: "sqlite"}

	mock.ExpectQuery("SELECT .* FROM genes WHERE symbol").
		WithArgs("KRAS").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err = s.FindGeneBySymbol(context.Background(), "KRAS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find gene by symbol")
	assert.NoError(t, mock.ExpectationsWereMet())
}
