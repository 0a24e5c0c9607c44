package vcf

import (
	"regexp"
	"strconv"
)

// Header holds the parsed VCF header.
type Header struct {
	FileFormat string  // e.g. "VCFv4.2"
	Reference  string  // reference genome name, if declared
	Contigs    []Contig
	Infos      []FieldDecl
	Formats    []FieldDecl
	Samples    []string // sample names from the #CHROM line (columns 9+)
}

// Contig is a ##contig declaration.
type Contig struct {
	ID     string
	Length int64 // 0 when not declared
}

// FieldDecl is a ##INFO or ##FORMAT declaration.
type FieldDecl struct {
	ID          string
	Number      string // arity: "1", "A", ".", etc.
	Type        string
	Description string
}

// Fixed patterns for the metadata lines the pipeline cares about.
// Anything else in the ## header is ignored.
var (
	fileformatRe = regexp.MustCompile(`^##fileformat=(.+)$`)
	referenceRe  = regexp.MustCompile(`^##reference=(.+)$`)
	contigRe     = regexp.MustCompile(`^##contig=<ID=([^,>]+)(?:,length=(\d+))?[^>]*>$`)
	infoRe       = regexp.MustCompile(`^##INFO=<ID=([^,>]+),Number=([^,>]+),Type=([^,>]+),Description="([^"]*)"[^>]*>$`)
	formatRe     = regexp.MustCompile(`^##FORMAT=<ID=([^,>]+),Number=([^,>]+),Type=([^,>]+),Description="([^"]*)"[^>]*>$`)
)

// parseMetaLine matches a single ## line against the known patterns and
// records it in the header. Unrecognized lines are not an error.
func (h *Header) parseMetaLine(line string) {
	if m := fileformatRe.FindStringSubmatch(line); m != nil {
		h.FileFormat = m[1]
		return
	}
	if m := referenceRe.FindStringSubmatch(line); m != nil {
		h.Reference = m[1]
		return
	}
	if m := contigRe.FindStringSubmatch(line); m != nil {
		c := Contig{ID: m[1]}
		if m[2] != "" {
			c.Length, _ = strconv.ParseInt(m[2], 10, 64)
		}
		h.Contigs = append(h.Contigs, c)
		return
	}
	if m := infoRe.FindStringSubmatch(line); m != nil {
		h.Infos = append(h.Infos, FieldDecl{ID: m[1], Number: m[2], Type: m[3], Description: m[4]})
		return
	}
	if m := formatRe.FindStringSubmatch(line); m != nil {
		h.Formats = append(h.Formats, FieldDecl{ID: m[1], Number: m[2], Type: m[3], Description: m[4]})
	}
}
