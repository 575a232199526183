package fasta_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hla/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const fastaData = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "acgt\r\n" + "\n" + "ACGT\n"

func TestRead(t *testing.T) {
	recs, err := fasta.Read(strings.NewReader(fastaData))
	assert.NoError(t, err)
	expect.EQ(t, recs, []fasta.Record{
		{Name: "seq1", Seq: "ACGTACGTACGT"},
		{Name: "seq2", Description: "A viral sequence", Seq: "ACGTACGT"},
	})
}

func TestReadEmpty(t *testing.T) {
	recs, err := fasta.Read(strings.NewReader(""))
	assert.NoError(t, err)
	expect.EQ(t, len(recs), 0)

	recs, err = fasta.Read(strings.NewReader(">a\n>b\nAC\n"))
	assert.NoError(t, err)
	expect.EQ(t, recs, []fasta.Record{{Name: "a"}, {Name: "b", Seq: "AC"}})
}

func TestReadErrors(t *testing.T) {
	for _, test := range []struct {
		data string
		want string
	}{
		{"ACGT\n>a\nACGT\n", "line 1: sequence data before"},
		{">a\nAC\n>a\nGT\n", "line 3: duplicate sequence name a"},
		{">\nAC\n", "line 1: empty sequence name"},
	} {
		_, err := fasta.Read(strings.NewReader(test.data))
		expect.True(t, err != nil && strings.Contains(err.Error(), test.want), "%q: %v", test.data, err)
	}
}

func TestReadFile(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	plain := filepath.Join(dir, "cons.fa")
	assert.NoError(t, ioutil.WriteFile(plain, []byte(fastaData), 0644))
	recs, err := fasta.ReadFile(ctx, plain)
	assert.NoError(t, err)
	expect.EQ(t, len(recs), 2)

	var buf strings.Builder
	w := gzip.NewWriter(&buf)
	_, err = w.Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	gz := filepath.Join(dir, "cons.fa.gz")
	assert.NoError(t, ioutil.WriteFile(gz, []byte(buf.String()), 0644))
	gzRecs, err := fasta.ReadFile(ctx, gz)
	assert.NoError(t, err)
	expect.EQ(t, gzRecs, recs)

	_, err = fasta.ReadFile(ctx, filepath.Join(dir, "missing.fa"))
	expect.True(t, err != nil)
}
