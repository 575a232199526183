package coverage

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/util"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// excludeFlags are the reads BAM ignores.
const excludeFlags = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate

// BAM is a Source that computes per-base depth directly from an aligned BAM
// file, producing the same runs as "genomeCoverageBed -bga -ibam". Every
// reference in the BAM header is reported, in header order, including
// references without reads. Deletions count as covered, skipped regions (N)
// do not.
type BAM struct {
	Path string
}

// Scan implements Source.
func (b BAM) Scan(ctx context.Context, fn func(Record) error) (err error) {
	in, err := util.Open(ctx, b.Path)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r, err := bam.NewReader(in.Reader(), 1)
	if err != nil {
		return errors.E(err, "read BAM header", b.Path)
	}
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			err = e
		}
	}()
	refs := r.Header().Refs()
	// diffs[refID][i] is the change in depth at position i.
	diffs := make([][]int32, len(refs))
	nRead := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.E(err, "read BAM", b.Path)
		}
		if rec.Flags&excludeFlags == 0 && rec.Ref != nil && rec.Ref.ID() >= 0 {
			refID := rec.Ref.ID()
			if diffs[refID] == nil {
				diffs[refID] = make([]int32, refs[refID].Len()+1)
			}
			addRead(diffs[refID], rec)
			nRead++
		}
		sam.PutInFreePool(rec)
		if nRead%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	log.Debug.Printf("coverage: %s: %d reads counted", b.Path, nRead)
	for refID, ref := range refs {
		if err := emitRuns(ref.Name(), ref.Len(), diffs[refID], fn); err != nil {
			return err
		}
	}
	return nil
}

// addRead records the reference bases covered by rec.
func addRead(diff []int32, rec *sam.Record) {
	limit := len(diff) - 1
	pos := rec.Pos
	add := func(start, end int) {
		if start < 0 {
			start = 0
		}
		if end > limit {
			end = limit
		}
		if start >= end {
			return
		}
		diff[start]++
		diff[end]--
	}
	for _, co := range rec.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch, sam.CigarDeletion:
			add(pos, pos+n)
			pos += n
		case sam.CigarSkipped:
			pos += n
		}
	}
}

// emitRuns reports maximal runs of equal depth over [0, length). A nil diff
// means no reads.
func emitRuns(contig string, length int, diff []int32, fn func(Record) error) error {
	if length <= 0 {
		return nil
	}
	if diff == nil {
		return fn(Record{Contig: contig, Start: 0, End: length, Depth: 0})
	}
	var depth int32
	runStart := 0
	runDepth := diff[0]
	for i := 0; i < length; i++ {
		depth += diff[i]
		if depth != runDepth {
			if err := fn(Record{Contig: contig, Start: runStart, End: i, Depth: float64(runDepth)}); err != nil {
				return err
			}
			runStart, runDepth = i, depth
		}
	}
	return fn(Record{Contig: contig, Start: runStart, End: length, Depth: float64(runDepth)})
}
