package coverage

import (
	"sort"
	"strings"
)

// Candidate is a reference contig ranked by its coverage.
type Candidate struct {
	Contig    string
	Average   float64
	Intervals int64
}

// CandidateList is ordered by decreasing Average.
type CandidateList []Candidate

// Contigs returns the contig names, in order.
func (l CandidateList) Contigs() []string {
	names := make([]string, len(l))
	for i, c := range l {
		names[i] = c.Contig
	}
	return names
}

// AlleleIDs returns the allele accessions of the contigs, in order. See
// AlleleID.
func (l CandidateList) AlleleIDs() []string {
	ids := make([]string, len(l))
	for i, c := range l {
		ids[i] = AlleleID(c.Contig)
	}
	return ids
}

// AlleleID extracts the allele accession from a reference panel contig name.
// IMGT genomic FASTA files name contigs "HLA:HLA00001"; the accession is the
// part after the last colon.
func AlleleID(contig string) string {
	if i := strings.LastIndexByte(contig, ':'); i >= 0 {
		return contig[i+1:]
	}
	return contig
}

// Rank computes the average coverage of each contig in t and sorts them in
// decreasing order. Contigs with equal averages keep the order in which they
// were first seen.
func Rank(t *Table) (CandidateList, error) {
	list := make(CandidateList, 0, t.Len())
	for _, s := range t.Summaries() {
		avg, err := s.Average()
		if err != nil {
			return nil, err
		}
		list = append(list, Candidate{Contig: s.Contig, Average: avg, Intervals: s.Intervals})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Average > list[j].Average })
	return list, nil
}

// RankOpts controls Select.
type RankOpts struct {
	// DropFactor is the largest allowed ratio between the average of the last
	// accepted candidate and the next one. A candidate is accepted iff its
	// average exceeds lastAccepted/DropFactor.
	DropFactor float64
}

// DefaultRankOpts accepts candidates with at least half the coverage of the
// previously accepted one.
var DefaultRankOpts = RankOpts{DropFactor: 2.0}

// Select walks the ranked list and keeps the well-supported candidates. The
// first candidate is always kept. Each following candidate is compared with
// the last accepted one, not with the best: the threshold only moves when a
// candidate is accepted.
func Select(list CandidateList, opts RankOpts) CandidateList {
	if len(list) == 0 {
		return nil
	}
	best := CandidateList{list[0]}
	threshold := list[0].Average
	for _, c := range list[1:] {
		if c.Average > threshold/opts.DropFactor {
			best = append(best, c)
			threshold = c.Average
		}
	}
	return best
}
