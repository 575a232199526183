// Package genotype assigns reference alleles to consensus sequences.
//
// Resolution runs in three tiers, one per compartment.Kind. In each tier the
// consensus is aligned against the segments of every surviving candidate and
// each segment label (exon2, exon3, intron1, ...) is ranked independently by
// mismatch count. A candidate survives the tier iff it has the fewest
// mismatches on every label it carries. Resolution stops as soon as one
// candidate remains.
//
//   Tier 1 (Primary):        0 survivors: Failed; 1: Unique; else Tier 2.
//   Tier 2 (Secondary):      1 survivor: Unique; else Tier 3.
//   Tier 3 (IntronOrUTR):    1 survivor: Unique; else Ambiguous.
//
// A tier never adds candidates. Candidates without segments in tier 2 or 3 are
// carried forward unchanged, and a tier 2 or 3 that would eliminate everyone
// keeps its input instead, less the candidates whose alignments failed.
package genotype

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/align"
	"github.com/grailbio/hla/compartment"
)

// Status is the outcome of resolving one consensus.
type Status int

const (
	// Failed means no allele survived tier 1.
	Failed Status = iota
	// Unique means exactly one allele survived.
	Unique
	// Ambiguous means several alleles survived every tier.
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Failed:
		return "failed"
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// CallSet is the genotype call for one consensus.
type CallSet struct {
	Consensus string
	// Alleles lists the surviving allele IDs in reference file order.
	Alleles []string
	Status  Status
	// Tier is the compartment whose tier ended resolution.
	Tier compartment.Kind
}

// String returns the human readable report line for c.
func (c CallSet) String() string {
	switch c.Status {
	case Unique:
		return fmt.Sprintf("%s: unique call %s (%v tier)", c.Consensus, c.Alleles[0], c.Tier)
	case Ambiguous:
		return fmt.Sprintf("%s: ambiguous call with %d candidates %v", c.Consensus, len(c.Alleles), c.Alleles)
	}
	return fmt.Sprintf("%s: resolution failed", c.Consensus)
}

// AlignmentError reports a segment that could not be aligned to a consensus.
// The allele is dropped from the tier; resolution continues.
type AlignmentError struct {
	Consensus string
	AlleleID  string
	Label     string
	Err       error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("genotype: aligning %s %s to %s: %v", e.AlleleID, e.Label, e.Consensus, e.Err)
}

func (e *AlignmentError) Unwrap() error { return e.Err }

// Opts controls a Resolver.
type Opts struct {
	// Parallelism is the number of consensuses ResolveBatch resolves
	// concurrently. Values <= 0 mean runtime.NumCPU().
	Parallelism int
	// AlignTimeout bounds each alignment; 0 disables the bound. A timeout is
	// an alignment failure.
	AlignTimeout time.Duration
	// Restrict, if nonempty, limits the candidates to these allele IDs,
	// typically the output of coverage.Select. IDs absent from the table are
	// ignored.
	Restrict []string
}

// DefaultOpts is the default Resolver configuration.
var DefaultOpts = Opts{
	Parallelism:  runtime.NumCPU(),
	AlignTimeout: time.Minute,
}

// Resolver resolves consensuses against a compartment table. It is safe for
// concurrent use.
type Resolver struct {
	table      *compartment.Table
	aligner    align.Aligner
	opts       Opts
	candidates []int
}

// NewResolver creates a Resolver over the alleles in t. The table is shared,
// not copied, and must not be modified afterwards.
func NewResolver(t *compartment.Table, a align.Aligner, opts Opts) (*Resolver, error) {
	r := &Resolver{
		table:   t,
		aligner: align.WithTimeout(a, opts.AlignTimeout),
		opts:    opts,
	}
	if len(opts.Restrict) == 0 {
		r.candidates = make([]int, t.Len())
		for i := range r.candidates {
			r.candidates[i] = i
		}
		return r, nil
	}
	keep := make(map[string]bool, len(opts.Restrict))
	for _, id := range opts.Restrict {
		keep[id] = true
	}
	for i := 0; i < t.Len(); i++ {
		if keep[t.At(i).AlleleID] {
			r.candidates = append(r.candidates, i)
		}
	}
	if len(r.candidates) == 0 {
		return nil, errors.E(errors.NotExist,
			fmt.Sprintf("genotype: none of the %d restricted alleles are %s alleles", len(opts.Restrict), t.Locus()))
	}
	log.Printf("genotype: restricted to %d of %d %s alleles", len(r.candidates), t.Len(), t.Locus())
	return r, nil
}

// Candidates returns the number of alleles each resolution starts from.
func (r *Resolver) Candidates() int { return len(r.candidates) }

// Resolve computes the genotype call for one consensus sequence. Alignment
// failures are logged and contained; the only error is ctx's.
func (r *Resolver) Resolve(ctx context.Context, name, seq string) (CallSet, error) {
	call := CallSet{Consensus: name}
	survivors := r.candidates
	memo := make(map[string]alignment)
	for k := compartment.Primary; k < compartment.NumKinds; k++ {
		var err error
		survivors, err = r.narrow(ctx, name, seq, k, survivors, memo)
		if err != nil {
			return CallSet{}, err
		}
		call.Tier = k
		log.Debug.Printf("genotype: %s: %d candidates after %v tier", name, len(survivors), k)
		if len(survivors) <= 1 {
			break
		}
	}
	call.Alleles = make([]string, len(survivors))
	for i, idx := range survivors {
		call.Alleles[i] = r.table.At(idx).AlleleID
	}
	switch len(survivors) {
	case 0:
		call.Status = Failed
	case 1:
		call.Status = Unique
	default:
		call.Status = Ambiguous
	}
	return call, nil
}

type alignment struct {
	mismatches int
	err        error
}

// narrow applies one tier to the candidates in, which are table indices in
// reference order. The result is a subsequence of in.
func (r *Resolver) narrow(ctx context.Context, name, seq string, k compartment.Kind, in []int, memo map[string]alignment) ([]int, error) {
	var (
		// Per candidate mismatch count by label; nil for candidates that
		// carry no segment of kind k or failed an alignment.
		scores = make([]map[string]int, len(in))
		failed = make([]bool, len(in))
		best   = make(map[string]int)
		scored int
	)
	for i, idx := range in {
		set := r.table.At(idx)
		segs := set.Get(k)
		if len(segs) == 0 {
			continue
		}
		scored++
		m := make(map[string]int, len(segs))
		for _, s := range segs {
			a, ok := memo[s.Seq]
			if !ok {
				res, err := r.aligner.Align(ctx, s.Seq, seq)
				if err != nil && ctx.Err() != nil {
					return nil, ctx.Err()
				}
				a = alignment{mismatches: res.Mismatches, err: err}
				memo[s.Seq] = a
			}
			if a.err != nil {
				log.Error.Printf("%v", &AlignmentError{Consensus: name, AlleleID: set.AlleleID, Label: s.Label, Err: a.err})
				failed[i] = true
				break
			}
			m[s.Label] = a.mismatches
		}
		if failed[i] {
			continue
		}
		scores[i] = m
		for label, n := range m {
			if b, ok := best[label]; !ok || n < b {
				best[label] = n
			}
		}
	}

	if k != compartment.Primary && scored > 0 && len(best) == 0 {
		kept := withoutFailed(in, failed)
		log.Printf("genotype: %s: every %v alignment failed; keeping %d candidates", name, k, len(kept))
		return kept, nil
	}
	var out []int
	for i, idx := range in {
		switch {
		case failed[i]:
		case scores[i] == nil:
			if k != compartment.Primary {
				out = append(out, idx)
			}
		case isBest(scores[i], best):
			out = append(out, idx)
		}
	}
	if k != compartment.Primary && len(out) == 0 {
		// No candidate is best on every label; the tier cannot discriminate.
		kept := withoutFailed(in, failed)
		log.Printf("genotype: %s: no candidate is best on every %v segment; keeping %d candidates", name, k, len(kept))
		return kept, nil
	}
	return out, nil
}

// withoutFailed returns the candidates of in whose alignments all succeeded.
// If none did, in is returned unchanged: tiers after the first never fail a
// consensus.
func withoutFailed(in []int, failed []bool) []int {
	var out []int
	for i, idx := range in {
		if !failed[i] {
			out = append(out, idx)
		}
	}
	if len(out) == 0 {
		return in
	}
	return out
}

func isBest(m, best map[string]int) bool {
	for label, n := range m {
		if n != best[label] {
			return false
		}
	}
	return true
}
