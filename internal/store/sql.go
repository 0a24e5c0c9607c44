package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	// Drivers selectable through Open.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLStore implements Store on database/sql. Supported drivers:
// "sqlite" (modernc), "duckdb", and "pgx" (PostgreSQL).
type SQLStore struct {
	db     *sql.DB
	q      dbtx
	tx     *sql.Tx
	driver string
}

// Open opens a store with the given driver and DSN and bootstraps the
// schema. For sqlite an empty dsn means an in-memory database.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite", "duckdb", "pgx":
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if driver == "sqlite" && dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	if driver == "sqlite" {
		// A pooled in-memory sqlite would give each connection its own
		// database; a file-backed one would hit write locks.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, q: db, driver: driver}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *SQLStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS genes (
			id TEXT PRIMARY KEY,
			gene_id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL UNIQUE,
			chrom TEXT NOT NULL,
			start_pos BIGINT,
			end_pos BIGINT,
			biotype TEXT NOT NULL,
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS variants (
			id TEXT PRIMARY KEY,
			variant_id TEXT NOT NULL UNIQUE,
			gene_id TEXT NOT NULL,
			chrom TEXT NOT NULL,
			pos BIGINT NOT NULL,
			ref TEXT NOT NULL,
			alt TEXT NOT NULL,
			variant_type TEXT NOT NULL,
			frequency DOUBLE PRECISION,
			clinical_significance TEXT,
			metadata TEXT NOT NULL,
			UNIQUE (chrom, pos, ref, alt)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_genes_position
			ON genes (chrom, start_pos, end_pos)`,
	}

	for _, stmt := range stmts {
		if _, err := s.q.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// WithTx runs fn against a transaction-scoped store.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txStore := &SQLStore{db: s.db, q: tx, tx: tx, driver: s.driver}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const geneColumns = "id, gene_id, symbol, chrom, start_pos, end_pos, biotype, description"

// FindGeneBySymbol looks up a gene by exact symbol.
func (s *SQLStore) FindGeneBySymbol(ctx context.Context, symbol string) (*Gene, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+geneColumns+` FROM genes WHERE symbol = $1`, symbol)
	g, err := scanGene(row)
	if err != nil {
		return nil, fmt.Errorf("find gene by symbol: %w", err)
	}
	return g, nil
}

// FindGeneByPosition looks up a gene whose [start, end] interval contains
// the position on the given chromosome. When several genes overlap the
// position, the one starting first wins, deterministically.
func (s *SQLStore) FindGeneByPosition(ctx context.Context, chrom string, pos int64) (*Gene, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+geneColumns+` FROM genes
		 WHERE chrom = $1 AND start_pos IS NOT NULL AND end_pos IS NOT NULL
		   AND start_pos <= $2 AND end_pos >= $2
		 ORDER BY start_pos, gene_id
		 LIMIT 1`, chrom, pos)
	g, err := scanGene(row)
	if err != nil {
		return nil, fmt.Errorf("find gene by position: %w", err)
	}
	return g, nil
}

// CreateGene inserts a gene row. Returns ErrConflict when a gene with the
// same symbol or external id already exists.
func (s *SQLStore) CreateGene(ctx context.Context, g *Gene) (*Gene, error) {
	created := *g
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO genes (`+geneColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		created.ID, created.GeneID, created.Symbol, created.Chrom,
		nullInt64(created.Start), nullInt64(created.End),
		created.Biotype, created.Description)
	if err != nil {
		if isConflict(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create gene: %w", err)
	}

	return &created, nil
}

const variantColumns = "id, variant_id, gene_id, chrom, pos, ref, alt, " +
	"variant_type, frequency, clinical_significance, metadata"

// FindVariantByID looks up a variant by its stable identifier.
func (s *SQLStore) FindVariantByID(ctx context.Context, variantID string) (*Variant, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE variant_id = $1`, variantID)
	v, err := scanVariant(row)
	if err != nil {
		return nil, fmt.Errorf("find variant by id: %w", err)
	}
	return v, nil
}

// FindVariantByLocus looks up a variant by its (chrom, pos, ref, alt)
// tuple, regardless of gene association.
func (s *SQLStore) FindVariantByLocus(ctx context.Context, chrom string, pos int64, ref, alt string) (*Variant, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants
		 WHERE chrom = $1 AND pos = $2 AND ref = $3 AND alt = $4`,
		chrom, pos, ref, alt)
	v, err := scanVariant(row)
	if err != nil {
		return nil, fmt.Errorf("find variant by locus: %w", err)
	}
	return v, nil
}

// CreateVariant inserts a variant row. Returns ErrConflict when the
// identifier or locus tuple already exists.
func (s *SQLStore) CreateVariant(ctx context.Context, v *Variant) (*Variant, error) {
	created := *v
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO variants (`+variantColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		created.ID, created.VariantID, created.GeneID, created.Chrom,
		created.Pos, created.Ref, created.Alt, created.Type,
		nullFloat64(created.Frequency), nullString(created.ClinicalSignificance),
		created.Metadata)
	if err != nil {
		if isConflict(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create variant: %w", err)
	}

	return &created, nil
}

func scanGene(row *sql.Row) (*Gene, error) {
	var g Gene
	var start, end sql.NullInt64
	err := row.Scan(&g.ID, &g.GeneID, &g.Symbol, &g.Chrom, &start, &end,
		&g.Biotype, &g.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if start.Valid {
		g.Start = &start.Int64
	}
	if end.Valid {
		g.End = &end.Int64
	}
	return &g, nil
}

func scanVariant(row *sql.Row) (*Variant, error) {
	var v Variant
	var freq sql.NullFloat64
	var clnsig sql.NullString
	err := row.Scan(&v.ID, &v.VariantID, &v.GeneID, &v.Chrom, &v.Pos,
		&v.Ref, &v.Alt, &v.Type, &freq, &clnsig, &v.Metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if freq.Valid {
		v.Frequency = &freq.Float64
	}
	if clnsig.Valid {
		v.ClinicalSignificance = clnsig.String
	}
	return &v, nil
}

// isConflict reports whether err is a unique constraint violation for any
// of the supported drivers.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint error")
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
