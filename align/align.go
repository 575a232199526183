// Package align provides the pairwise alignment capability used to score a
// consensus against reference allele segments.
package align

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
)

// Result is the outcome of aligning a reference segment to a query.
type Result struct {
	// Score is the alignment score; larger is better.
	Score int
	// Mismatches counts the differences between the reference segment and the
	// query: substituted, inserted and deleted bases in the alignment, plus
	// reference bases outside of it. Zero means the segment occurs verbatim in
	// the query.
	Mismatches int
}

// Aligner aligns a reference segment against a (longer) query sequence.
// Implementations must be safe for concurrent use.
type Aligner interface {
	Align(ctx context.Context, ref, query string) (Result, error)
}

// Scoring holds linear alignment weights.
type Scoring struct {
	Match    int
	Mismatch int
	Gap      int
}

// DefaultScoring rewards matches and penalizes gaps more than substitutions.
var DefaultScoring = Scoring{Match: 2, Mismatch: -3, Gap: -5}

// Names of the aligners accepted by New.
const (
	FittedName   = "fitted"
	UngappedName = "ungapped"
)

// New returns the aligner with the given name.
func New(name string, s Scoring) (Aligner, error) {
	switch name {
	case FittedName:
		return NewFitted(s), nil
	case UngappedName:
		return Ungapped{Scoring: s}, nil
	}
	return nil, fmt.Errorf("align: unknown aligner %q (want %q or %q)", name, FittedName, UngappedName)
}

type timeoutAligner struct {
	a       Aligner
	timeout time.Duration
}

// WithTimeout bounds the time spent in each call to a.Align. On expiry the
// call returns an error of kind errors.Timeout; the abandoned alignment runs
// to completion in the background since aligners are CPU bound and do not
// observe cancelation. A non-positive timeout returns a unchanged.
func WithTimeout(a Aligner, timeout time.Duration) Aligner {
	if timeout <= 0 {
		return a
	}
	return timeoutAligner{a: a, timeout: timeout}
}

func (t timeoutAligner) Align(ctx context.Context, ref, query string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	type result struct {
		r   Result
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := t.a.Align(ctx, ref, query)
		ch <- result{r, err}
	}()
	select {
	case r := <-ch:
		return r.r, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, errors.E(errors.Timeout, fmt.Sprintf("alignment exceeded %v", t.timeout))
		}
		return Result{}, errors.E(errors.Canceled, ctx.Err())
	}
}
