// Package report writes candidate lists and genotype calls.
package report

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hla/coverage"
	"github.com/grailbio/hla/genotype"
	"github.com/grailbio/hla/util"
)

// CandidateRow is one line of a candidate TSV file, as read by tsv.Reader.
type CandidateRow struct {
	Contig    string  `tsv:"contig"`
	AlleleID  string  `tsv:"allele_id"`
	Average   float64 `tsv:"average"`
	Intervals int64   `tsv:"intervals"`
}

// WriteCandidates writes list as TSV with a header row.
func WriteCandidates(w io.Writer, list coverage.CandidateList) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("contig\tallele_id\taverage\tintervals")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, c := range list {
		tw.WriteString(c.Contig)
		tw.WriteString(coverage.AlleleID(c.Contig))
		tw.WriteFloat64(c.Average, 'g', -1)
		tw.WriteInt64(c.Intervals)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ReadCandidates reads a file written by WriteCandidates.
func ReadCandidates(r io.Reader) (coverage.CandidateList, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	var list coverage.CandidateList
	for {
		var row CandidateRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		list = append(list, coverage.Candidate{Contig: row.Contig, Average: row.Average, Intervals: row.Intervals})
	}
	return list, nil
}

// CallRow is one line of a genotype call TSV file, as read by tsv.Reader.
type CallRow struct {
	Consensus string `tsv:"consensus"`
	Status    string `tsv:"status"`
	Tier      string `tsv:"tier"`
	NAlleles  int64  `tsv:"n_alleles"`
	// Alleles is a comma separated list, in reference order.
	Alleles string `tsv:"alleles"`
}

// WriteCalls writes one TSV row per call set, after a header row.
func WriteCalls(w io.Writer, calls []genotype.CallSet) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("consensus\tstatus\ttier\tn_alleles\talleles")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, c := range calls {
		tw.WriteString(c.Consensus)
		tw.WriteString(c.Status.String())
		tw.WriteString(c.Tier.String())
		tw.WriteInt64(int64(len(c.Alleles)))
		tw.WriteString(strings.Join(c.Alleles, ","))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteFile creates path and writes to it with write.
func WriteFile(ctx context.Context, path string, write func(io.Writer) error) error {
	out, err := util.Create(ctx, path)
	if err != nil {
		return err
	}
	err = write(out.Writer(ctx))
	if e := out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}

// ReadCandidatesFile reads a candidate TSV file, optionally gzipped.
func ReadCandidatesFile(ctx context.Context, path string) (coverage.CandidateList, error) {
	in, err := util.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	list, err := ReadCandidates(in.Reader())
	if e := in.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, errors.E(err, "read", path)
	}
	return list, nil
}
