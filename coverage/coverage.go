// Package coverage narrows the set of reference alleles worth genotyping
// against, using read depth over a multi-allele genomic reference panel.
//
// Coverage arrives as bedgraph-style records (contig, start, end, depth), one
// per run of equal depth, covering every base of every contig including
// zero-depth runs; this is the output of "genomeCoverageBed -bga". Aggregate
// sums depth per contig and Rank/Select turn the sums into a short list of
// candidates.
//
// The average coverage of a contig is the mean over reported intervals, not
// over bases: a 1-base run and a 1000-base run weigh the same. This matches the
// established candidate selection behavior and is kept on purpose;
// Summary.BaseAverage gives the per-base mean for reporting.
package coverage

import (
	"context"
	"fmt"

	"github.com/grailbio/base/log"
)

// Record is one bedgraph row.
type Record struct {
	Contig     string
	Start, End int
	Depth      float64
}

// Source produces coverage records.
type Source interface {
	// Scan calls fn for each record, in input order. Scan stops at the first
	// error returned by fn and returns it.
	Scan(ctx context.Context, fn func(Record) error) error
}

// Summary is the coverage accumulated for one contig.
type Summary struct {
	Contig string
	// Cumulative is the sum of the depths of all intervals.
	Cumulative float64
	// Intervals is the number of intervals seen.
	Intervals int64
	// Bases is the total length of all intervals.
	Bases int64
	// weighted is the sum of depth*length over all intervals.
	weighted float64
}

// Average returns Cumulative/Intervals. It returns a *ZeroIntervalsError if
// no interval was recorded.
func (s Summary) Average() (float64, error) {
	if s.Intervals == 0 {
		return 0, &ZeroIntervalsError{Contig: s.Contig}
	}
	return s.Cumulative / float64(s.Intervals), nil
}

// BaseAverage returns the length-weighted mean depth, or 0 if the contig has
// no bases.
func (s Summary) BaseAverage() float64 {
	if s.Bases == 0 {
		return 0
	}
	return s.weighted / float64(s.Bases)
}

// ZeroIntervalsError reports a summary without intervals. Aggregate never
// produces one, so this is an internal invariant violation.
type ZeroIntervalsError struct {
	Contig string
}

func (e *ZeroIntervalsError) Error() string {
	return fmt.Sprintf("coverage: contig %s has no intervals", e.Contig)
}

// Table maps contigs to their summaries, remembering the order in which
// contigs were first seen.
type Table struct {
	summaries []Summary
	index     map[string]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{index: map[string]int{}}
}

// Add accumulates r.
func (t *Table) Add(r Record) {
	i, ok := t.index[r.Contig]
	if !ok {
		i = len(t.summaries)
		t.index[r.Contig] = i
		t.summaries = append(t.summaries, Summary{Contig: r.Contig})
	}
	s := &t.summaries[i]
	s.Cumulative += r.Depth
	s.Intervals++
	if n := r.End - r.Start; n > 0 {
		s.Bases += int64(n)
		s.weighted += r.Depth * float64(n)
	}
}

// Len returns the number of contigs.
func (t *Table) Len() int { return len(t.summaries) }

// Summaries returns the per-contig summaries in discovery order. The result
// must not be modified.
func (t *Table) Summaries() []Summary { return t.summaries }

// Get returns the summary of the given contig.
func (t *Table) Get(contig string) (Summary, bool) {
	i, ok := t.index[contig]
	if !ok {
		return Summary{}, false
	}
	return t.summaries[i], true
}

// Aggregate reads every record of src into a new Table.
func Aggregate(ctx context.Context, src Source) (*Table, error) {
	t := NewTable()
	n := 0
	err := src.Scan(ctx, func(r Record) error {
		t.Add(r)
		n++
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("coverage: aggregated %d intervals over %d contigs", n, t.Len())
	return t, nil
}
