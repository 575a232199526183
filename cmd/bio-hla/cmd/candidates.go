package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/coverage"
	"github.com/grailbio/hla/report"
)

type candidatesFlags struct {
	bedGraphPath string
	bamPath      string
	genomeCov    bool
	genomePath   string
	dropFactor   float64
	all          bool
	tsvPath      string
	arrowPath    string
}

func (f candidatesFlags) source() (coverage.Source, error) {
	switch {
	case f.bedGraphPath != "" && f.bamPath != "":
		return nil, fmt.Errorf("-bedgraph and -bam are mutually exclusive")
	case f.bedGraphPath != "":
		if f.genomeCov {
			return nil, fmt.Errorf("-genomecov requires -bam")
		}
		return coverage.BedGraphFile{Path: f.bedGraphPath}, nil
	case f.bamPath != "" && f.genomeCov:
		return coverage.GenomeCov{BAMPath: f.bamPath, GenomePath: f.genomePath}, nil
	case f.bamPath != "":
		return coverage.BAM{Path: f.bamPath}, nil
	}
	return nil, fmt.Errorf("one of -bedgraph or -bam is required")
}

func candidates(ctx context.Context, out io.Writer, f candidatesFlags) error {
	if f.dropFactor <= 1 {
		return fmt.Errorf("-drop-factor must be greater than 1, but got %v", f.dropFactor)
	}
	src, err := f.source()
	if err != nil {
		return err
	}
	table, err := coverage.Aggregate(ctx, src)
	if err != nil {
		return err
	}
	ranked, err := coverage.Rank(table)
	if err != nil {
		return err
	}
	list := coverage.Select(ranked, coverage.RankOpts{DropFactor: f.dropFactor})
	log.Printf("candidates: selected %d of %d contigs", len(list), len(ranked))
	if f.all {
		list = ranked
	}
	for _, c := range list {
		if _, err := fmt.Fprintf(out, "%s %v\n", c.Contig, c.Average); err != nil {
			return err
		}
	}
	if f.tsvPath != "" {
		if err := report.WriteFile(ctx, f.tsvPath, func(w io.Writer) error {
			return report.WriteCandidates(w, list)
		}); err != nil {
			return err
		}
	}
	if f.arrowPath != "" {
		if err := report.WriteFile(ctx, f.arrowPath, func(w io.Writer) error {
			return report.WriteCandidatesArrow(w, list)
		}); err != nil {
			return err
		}
	}
	return nil
}
