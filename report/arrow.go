package report

import (
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/grailbio/hla/coverage"
)

// CandidateSchema is the Arrow schema of candidate files.
var CandidateSchema = arrow.NewSchema([]arrow.Field{
	{Name: "contig", Type: arrow.BinaryTypes.String},
	{Name: "allele_id", Type: arrow.BinaryTypes.String},
	{Name: "average", Type: arrow.PrimitiveTypes.Float64},
	{Name: "intervals", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// WriteCandidatesArrow writes list as an Arrow IPC stream with a single record
// batch. The stream format needs no seeking, so w may be any file.Writer,
// including one backed by S3.
func WriteCandidatesArrow(w io.Writer, list coverage.CandidateList) error {
	pool := memory.NewGoAllocator()
	contig := array.NewStringBuilder(pool)
	defer contig.Release()
	alleleID := array.NewStringBuilder(pool)
	defer alleleID.Release()
	average := array.NewFloat64Builder(pool)
	defer average.Release()
	intervals := array.NewInt64Builder(pool)
	defer intervals.Release()

	for _, c := range list {
		contig.Append(c.Contig)
		alleleID.Append(coverage.AlleleID(c.Contig))
		average.Append(c.Average)
		intervals.Append(c.Intervals)
	}
	cols := []arrow.Array{contig.NewArray(), alleleID.NewArray(), average.NewArray(), intervals.NewArray()}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	record := array.NewRecord(CandidateSchema, cols, int64(len(list)))
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(CandidateSchema), ipc.WithAllocator(pool))
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}
