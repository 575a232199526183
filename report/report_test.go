package report

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hla/compartment"
	"github.com/grailbio/hla/coverage"
	"github.com/grailbio/hla/genotype"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCandidates = coverage.CandidateList{
	{Contig: "HLA:HLA00001", Average: 100, Intervals: 4},
	{Contig: "HLA:HLA00002", Average: 60.5, Intervals: 2},
	{Contig: "HLA00003", Average: 29, Intervals: 1},
}

func TestCandidatesTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidates(&buf, testCandidates))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "contig\tallele_id\taverage\tintervals", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "HLA:HLA00001\tHLA00001\t"))

	got, err := ReadCandidates(&buf)
	require.NoError(t, err)
	assert.Equal(t, testCandidates, got)
}

func TestCandidatesFile(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "candidates.tsv")
	require.NoError(t, WriteFile(ctx, path, func(w io.Writer) error {
		return WriteCandidates(w, testCandidates[:2])
	}))
	got, err := ReadCandidatesFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, testCandidates[:2], got)
	assert.Equal(t, []string{"HLA00001", "HLA00002"}, got.AlleleIDs())

	_, err = ReadCandidatesFile(ctx, filepath.Join(dir, "missing.tsv"))
	assert.Error(t, err)
}

func readArrow(t *testing.T, data []byte) arrow.Record {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer reader.Release()
	assert.True(t, reader.Schema().Equal(CandidateSchema))
	require.True(t, reader.Next())
	record := reader.Record()
	record.Retain()
	assert.False(t, reader.Next())
	require.NoError(t, reader.Err())
	return record
}

func TestCandidatesArrow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidatesArrow(&buf, testCandidates))

	record := readArrow(t, buf.Bytes())
	defer record.Release()
	require.EqualValues(t, len(testCandidates), record.NumRows())

	contigs := record.Column(0).(*array.String)
	ids := record.Column(1).(*array.String)
	averages := record.Column(2).(*array.Float64)
	intervals := record.Column(3).(*array.Int64)
	for i, c := range testCandidates {
		assert.Equal(t, c.Contig, contigs.Value(i))
		assert.Equal(t, coverage.AlleleID(c.Contig), ids.Value(i))
		assert.Equal(t, c.Average, averages.Value(i))
		assert.Equal(t, c.Intervals, intervals.Value(i))
	}
}

func TestCandidatesArrowEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidatesArrow(&buf, nil))
	record := readArrow(t, buf.Bytes())
	defer record.Release()
	assert.EqualValues(t, 0, record.NumRows())
}

// A file.Writer cannot seek, so the Arrow output must go through WriteFile.
func TestCandidatesArrowFile(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "candidates.arrow")
	require.NoError(t, WriteFile(ctx, path, func(w io.Writer) error {
		return WriteCandidatesArrow(w, testCandidates)
	}))
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	record := readArrow(t, data)
	defer record.Release()
	require.EqualValues(t, len(testCandidates), record.NumRows())
}

func TestCalls(t *testing.T) {
	calls := []genotype.CallSet{
		{Consensus: "c1", Alleles: []string{"HLA00001"}, Status: genotype.Unique, Tier: compartment.Primary},
		{Consensus: "c2", Alleles: []string{"HLA00002", "HLA00007"}, Status: genotype.Ambiguous, Tier: compartment.IntronOrUTR},
		{Consensus: "c3", Alleles: []string{}, Status: genotype.Failed, Tier: compartment.Primary},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCalls(&buf, calls))
	assert.True(t, strings.HasPrefix(buf.String(), "consensus\tstatus\ttier\tn_alleles\talleles\n"))
	assert.Contains(t, buf.String(), "\nc3\tfailed\tprimary\t0\t\n")

	r := tsv.NewReader(&buf)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var rows []CallRow
	for {
		var row CallRow
		err := r.Read(&row)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	assert.Equal(t, []CallRow{
		{Consensus: "c1", Status: "unique", Tier: "primary", NAlleles: 1, Alleles: "HLA00001"},
		{Consensus: "c2", Status: "ambiguous", Tier: "intron/UTR", NAlleles: 2, Alleles: "HLA00002,HLA00007"},
		{Consensus: "c3", Status: "failed", Tier: "primary", NAlleles: 0, Alleles: ""},
	}, rows)
}
