package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Parser reads records from a VCF stream.
// Malformed data lines (fewer than 8 columns, unparsable position) are
// skipped with a logged warning; only a missing or garbled header is fatal.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	header     *Header
	stats      Stats
	logger     *zap.Logger
}

// Stats summarizes records seen by the parser in a single pass.
type Stats struct {
	Records     int            // data records returned
	Skipped     int            // malformed lines skipped
	Chromosomes map[string]int // per normalized chromosome
	Classes     map[string]int // per inferred variant class
}

// NewParser creates a VCF parser for the given file.
// Supports plain and gzipped VCF; use "-" for stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := newParser()
	p.file = file

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	_, err = file.Read(buf)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	_, err = file.Seek(0, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := newParser()
	p.reader = bufio.NewReader(r)

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// NewParserFromString creates a parser over raw VCF text.
func NewParserFromString(text string) (*Parser, error) {
	return NewParserFromReader(strings.NewReader(text))
}

func newParser() *Parser {
	return &Parser{
		header: &Header{},
		logger: zap.NewNop(),
		stats: Stats{
			Chromosomes: make(map[string]int),
			Classes:     make(map[string]int),
		},
	}
}

// SetLogger sets the logger used for skipped-line warnings.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// parseHeader reads metadata lines up to and including the #CHROM line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header.parseMetaLine(line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			// Sample names are the columns after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.header.Samples = fields[9:]
			}
			return nil
		}

		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// Next reads the next record from the VCF stream.
// Returns nil, nil when there are no more records. Malformed lines are
// skipped, not returned as errors.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read record line: %w", err)
		}
		atEOF := err == io.EOF

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if atEOF {
				return nil, nil
			}
			p.lineNumber++
			continue
		}
		p.lineNumber++

		rec, perr := p.parseLine(line)
		if perr != nil {
			p.stats.Skipped++
			p.logger.Warn("skipping malformed vcf line",
				zap.Int("line", p.lineNumber),
				zap.String("reason", perr.Message))
			if atEOF {
				return nil, nil
			}
			continue
		}

		p.stats.Records++
		p.stats.Chromosomes[rec.Chrom]++
		p.stats.Classes[rec.Class()]++
		return rec, nil
	}
}

// parseLine parses a single VCF data line into a Record.
func (p *Parser) parseLine(line string) (*Record, *ParseError) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	r := &Record{
		Chrom:  NormalizeChrom(fields[0]),
		Pos:    pos,
		ID:     dotToEmpty(fields[2]),
		Ref:    fields[3],
		Alt:    fields[4],
		Filter: dotToEmpty(fields[6]),
		Info:   parseInfo(fields[7]),
	}

	if fields[5] != "." && fields[5] != "" {
		if q, err := strconv.ParseFloat(fields[5], 64); err == nil {
			r.Qual = &q
		}
	}

	// FORMAT + sample columns, if present
	if len(fields) > 9 {
		r.Samples = parseSamples(fields[8], fields[9:])
	}

	return r, nil
}

// parseInfo parses the INFO field into a map. Entries are
// semicolon-separated KEY=VALUE pairs or bare flags (value true).
func parseInfo(info string) map[string]any {
	result := make(map[string]any)
	if info == "." || info == "" {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			result[parts[0]] = true
		}
	}

	return result
}

// parseSamples zip-matches colon-separated sample values against the
// FORMAT field names. Missing trailing values default to ".".
func parseSamples(format string, columns []string) []map[string]string {
	keys := strings.Split(format, ":")
	samples := make([]map[string]string, len(columns))

	for i, col := range columns {
		values := strings.Split(col, ":")
		sample := make(map[string]string, len(keys))
		for j, key := range keys {
			if j < len(values) {
				sample[key] = values[j]
			} else {
				sample[key] = "."
			}
		}
		samples[i] = sample
	}

	return samples
}

func dotToEmpty(s string) string {
	if s == "." {
		return ""
	}
	return s
}

// Header returns the parsed VCF header.
func (p *Parser) Header() *Header {
	return p.header
}

// Stats returns summary statistics for the records read so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
