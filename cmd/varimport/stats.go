package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/genomehub/varimport/internal/vcf"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.vcf>",
		Short: "Summarize a VCF file without importing it",
		Long: `Parse a VCF file and print summary statistics: record count, distinct
chromosomes, and variant class counts. Nothing is written to the store.`,
		Example: `  varimport stats sample.vcf
  cat sample.vcf | varimport stats -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0])
		},
	}
}

func runStats(path string) error {
	p, err := vcf.NewParser(path)
	if err != nil {
		return err
	}
	defer p.Close()

	for {
		rec, err := p.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
	}

	h := p.Header()
	stats := p.Stats()

	if h.FileFormat != "" {
		fmt.Printf("Format:      %s\n", h.FileFormat)
	}
	if h.Reference != "" {
		fmt.Printf("Reference:   %s\n", h.Reference)
	}
	if len(h.Samples) > 0 {
		fmt.Printf("Samples:     %d\n", len(h.Samples))
	}

	fmt.Printf("Records:     %s\n", humanize.Comma(int64(stats.Records)))
	if stats.Skipped > 0 {
		fmt.Printf("Skipped:     %s malformed lines\n", humanize.Comma(int64(stats.Skipped)))
	}

	chroms := make([]string, 0, len(stats.Chromosomes))
	for c := range stats.Chromosomes {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	fmt.Printf("Chromosomes: %d distinct\n", len(chroms))
	for _, c := range chroms {
		fmt.Printf("  %-12s %s\n", c, humanize.Comma(int64(stats.Chromosomes[c])))
	}

	for _, class := range []string{vcf.ClassSNV, vcf.ClassIns, vcf.ClassDel, vcf.ClassComplex} {
		if n := stats.Classes[class]; n > 0 {
			fmt.Printf("%-12s %s\n", class+":", humanize.Comma(int64(n)))
		}
	}

	return nil
}
