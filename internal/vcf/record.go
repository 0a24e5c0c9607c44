// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Record represents a single data line from a VCF file.
type Record struct {
	Chrom   string              // Normalized chromosome name (e.g., "12", "X")
	Pos     int64               // 1-based genomic position
	ID      string              // Variant identifier (e.g., rs ID); empty if "."
	Ref     string              // Reference allele
	Alt     string              // Alternate allele
	Qual    *float64            // Quality score; nil if "."
	Filter  string              // Filter status (PASS or filter name); empty if "."
	Info    map[string]any      // INFO field key-value pairs (string values, bool flags)
	Samples []map[string]string // Per-sample FORMAT values, in #CHROM column order
}

// Variant classes inferred from allele lengths.
const (
	ClassSNV     = "SNV"
	ClassIns     = "INS"
	ClassDel     = "DEL"
	ClassComplex = "COMPLEX"
)

// IsSNV returns true if the record is a single nucleotide variant.
func (r *Record) IsSNV() bool {
	return len(r.Ref) == 1 && len(r.Alt) == 1
}

// IsInsertion returns true if the record is an insertion.
func (r *Record) IsInsertion() bool {
	return len(r.Alt) > len(r.Ref)
}

// IsDeletion returns true if the record is a deletion.
func (r *Record) IsDeletion() bool {
	return len(r.Ref) > len(r.Alt)
}

// Class returns the inferred variant class for the record.
// Equal-length alleles longer than one base are reported as COMPLEX;
// multi-nucleotide substitutions are not distinguished.
func (r *Record) Class() string {
	switch {
	case r.IsSNV():
		return ClassSNV
	case r.IsDeletion():
		return ClassDel
	case r.IsInsertion():
		return ClassIns
	default:
		return ClassComplex
	}
}

// InfoString returns the INFO value for key as a string.
// Flag entries and absent keys return "", false.
func (r *Record) InfoString(key string) (string, bool) {
	v, ok := r.Info[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NormalizeChrom canonicalizes a chromosome label: strips a leading
// case-insensitive "chr" prefix and maps 23→X, 24→Y, MT→M.
// The function is pure and idempotent.
func NormalizeChrom(raw string) string {
	c := strings.TrimSpace(raw)

	// chrM / chrMT must be handled before the generic prefix strip.
	if strings.EqualFold(c, "chrM") || strings.EqualFold(c, "chrMT") {
		return "M"
	}

	if len(c) > 3 && strings.EqualFold(c[:3], "chr") {
		c = c[3:]
	}

	switch c {
	case "23":
		return "X"
	case "24":
		return "Y"
	case "MT":
		return "M"
	}

	return c
}
