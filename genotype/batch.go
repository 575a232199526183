package genotype

import (
	"context"
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Consensus is an assembled sequence to genotype.
type Consensus struct {
	Name string
	Seq  string
}

// ResolveBatch resolves each consensus independently. The result is in input
// order. Consensuses are split into Opts.Parallelism contiguous jobs that run
// concurrently; an error is returned only if ctx is canceled.
func (r *Resolver) ResolveBatch(ctx context.Context, consensuses []Consensus) ([]CallSet, error) {
	calls := make([]CallSet, len(consensuses))
	if len(consensuses) == 0 {
		return calls, nil
	}
	parallelism := r.opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(consensuses) {
		parallelism = len(consensuses)
	}
	log.Printf("genotype: resolving %d consensuses against %d %s alleles (%d jobs)",
		len(consensuses), len(r.candidates), r.table.Locus(), parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(consensuses)) / parallelism
		endIdx := ((jobIdx + 1) * len(consensuses)) / parallelism
		for i := startIdx; i < endIdx; i++ {
			c := consensuses[i]
			log.Debug.Printf("genotype: processing consensus %s (%d bases)", c.Name, len(c.Seq))
			call, err := r.Resolve(ctx, c.Name, c.Seq)
			if err != nil {
				return err
			}
			calls[i] = call
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return calls, nil
}

// Summary counts the calls by status.
func Summary(calls []CallSet) map[Status]int {
	m := make(map[Status]int, 3)
	for _, c := range calls {
		m[c.Status]++
	}
	return m
}
