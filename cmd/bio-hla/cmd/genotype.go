package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/align"
	"github.com/grailbio/hla/compartment"
	"github.com/grailbio/hla/encoding/embl"
	"github.com/grailbio/hla/encoding/fasta"
	"github.com/grailbio/hla/genotype"
	"github.com/grailbio/hla/report"
)

type genotypeFlags struct {
	datPath        string
	consPath       string
	locus          string
	candidatesPath string
	aligner        string
	parallelism    int
	timeout        time.Duration
	outPath        string
}

func locusNames() []string {
	names := make([]string, len(compartment.Loci))
	for i, l := range compartment.Loci {
		names[i] = string(l)
	}
	return names
}

func genotypeConsensuses(ctx context.Context, out io.Writer, f genotypeFlags) error {
	if f.datPath == "" || f.consPath == "" || f.locus == "" {
		return fmt.Errorf("-dat, -cons and -locus are required")
	}
	locus, err := compartment.ParseLocus(f.locus)
	if err != nil {
		return err
	}
	aligner, err := align.New(f.aligner, align.DefaultScoring)
	if err != nil {
		return err
	}
	opts := genotype.DefaultOpts
	opts.Parallelism = f.parallelism
	opts.AlignTimeout = f.timeout
	if f.candidatesPath != "" {
		list, err := report.ReadCandidatesFile(ctx, f.candidatesPath)
		if err != nil {
			return err
		}
		opts.Restrict = list.AlleleIDs()
	}

	log.Printf("genotype: processing reference IMGT file %s", f.datPath)
	records, err := embl.ReadFile(ctx, f.datPath)
	if err != nil {
		return err
	}
	table, err := compartment.NewTable(records, locus)
	if err != nil {
		return err
	}
	resolver, err := genotype.NewResolver(table, aligner, opts)
	if err != nil {
		return err
	}

	seqs, err := fasta.ReadFile(ctx, f.consPath)
	if err != nil {
		return err
	}
	consensuses := make([]genotype.Consensus, len(seqs))
	for i, s := range seqs {
		consensuses[i] = genotype.Consensus{Name: s.Name, Seq: s.Seq}
	}
	calls, err := resolver.ResolveBatch(ctx, consensuses)
	if err != nil {
		return err
	}
	for _, c := range calls {
		if _, err := fmt.Fprintln(out, c); err != nil {
			return err
		}
	}
	counts := genotype.Summary(calls)
	log.Printf("genotype: %d unique, %d ambiguous, %d failed",
		counts[genotype.Unique], counts[genotype.Ambiguous], counts[genotype.Failed])
	if f.outPath != "" {
		return report.WriteFile(ctx, f.outPath, func(w io.Writer) error {
			return report.WriteCalls(w, calls)
		})
	}
	return nil
}
