// Package ingest implements the variant ingestion pipeline: canonical
// transformation, gene resolution, deduplication, and batch import.
package ingest

import (
	"fmt"
	"math"
	"strconv"

	"github.com/genomehub/varimport/internal/vcf"
)

// VariantType classifies a variant by its allele lengths.
type VariantType string

const (
	TypeSNV     VariantType = "SNV"
	TypeIns     VariantType = "INS"
	TypeDel     VariantType = "DEL"
	TypeComplex VariantType = "COMPLEX"
)

// INFO keys checked for a population frequency, in priority order.
var frequencyKeys = []string{"AF", "MAF", "FREQ"}

// INFO keys checked for a gene symbol hint, in priority order.
var geneHintKeys = []string{"GENE_SYMBOL", "SYMBOL"}

// clnsigKey is the INFO key carrying clinical significance.
const clnsigKey = "CLNSIG"

// CanonicalVariant is the pipeline's normalized representation of a VCF
// record, independent of the storage schema.
type CanonicalVariant struct {
	ID                   string // record id, or chrom_pos_ref_alt composite
	Chrom                string
	Pos                  int64
	Ref                  string
	Alt                  string
	Type                 VariantType
	Frequency            *float64 // nil when no parseable AF/MAF/FREQ value
	ClinicalSignificance string   // CLNSIG verbatim, empty when absent
	GeneHint             string   // gene symbol hint from INFO, empty when absent
	Metadata             Metadata // preserved for audit
}

// Metadata preserves the parts of the source record not covered by the
// canonical fields.
type Metadata struct {
	Qual    *float64            `json:"qual,omitempty"`
	Filter  string              `json:"filter,omitempty"`
	Info    map[string]any      `json:"info,omitempty"`
	Samples []map[string]string `json:"samples,omitempty"`
}

// ToCanonical converts a parsed record into its canonical variant shape.
// The function is pure and total: it never fails for a structurally valid
// record.
func ToCanonical(rec *vcf.Record) *CanonicalVariant {
	cv := &CanonicalVariant{
		ID:    rec.ID,
		Chrom: rec.Chrom,
		Pos:   rec.Pos,
		Ref:   rec.Ref,
		Alt:   rec.Alt,
		Type:  inferType(rec),
		Metadata: Metadata{
			Qual:    rec.Qual,
			Filter:  rec.Filter,
			Info:    rec.Info,
			Samples: rec.Samples,
		},
	}

	if cv.ID == "" {
		cv.ID = fmt.Sprintf("%s_%d_%s_%s", rec.Chrom, rec.Pos, rec.Ref, rec.Alt)
	}

	for _, key := range frequencyKeys {
		raw, ok := rec.InfoString(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			// Non-numeric frequency values are ignored, never an error.
			continue
		}
		cv.Frequency = &f
		break
	}

	if sig, ok := rec.InfoString(clnsigKey); ok {
		cv.ClinicalSignificance = sig
	}

	for _, key := range geneHintKeys {
		if hint, ok := rec.InfoString(key); ok && hint != "" {
			cv.GeneHint = hint
			break
		}
	}

	return cv
}

// inferType applies the allele-length classification rules. Equal-length
// multi-base substitutions come out as COMPLEX; this is a known
// simplification.
func inferType(rec *vcf.Record) VariantType {
	switch {
	case rec.IsSNV():
		return TypeSNV
	case rec.IsDeletion():
		return TypeDel
	case rec.IsInsertion():
		return TypeIns
	default:
		return TypeComplex
	}
}
