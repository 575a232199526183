// Package fasta reads FASTA files of consensus sequences. A FASTA file
// consists of a number of named sequences that may be interrupted by
// newlines. For example:
//
// >cons1 HLA-A assembled from sample 7
// ACGTAC
// GAGGAC
// GCG
// >cons2
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'. The rest of the line is the description.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/util"
	"github.com/pkg/errors"
)

const maxLineLen = 64 * 1024 * 1024

// Record is one named sequence. Seq is upper case.
type Record struct {
	Name        string
	Description string
	Seq         string
}

// Read parses all records from r, in file order. Blank lines are ignored.
// Sequence names must be unique.
func Read(r io.Reader) ([]Record, error) {
	var (
		recs    []Record
		seen    = map[string]bool{}
		seq     strings.Builder
		lineNum int
	)
	flush := func() {
		if len(recs) > 0 {
			recs[len(recs)-1].Seq = seq.String()
			seq.Reset()
		}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLen)
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimRight(scanner.Bytes(), "\r \t")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			flush()
			header := strings.TrimSpace(string(line[1:]))
			rec := Record{Name: header}
			if i := strings.IndexAny(header, " \t"); i >= 0 {
				rec.Name = header[:i]
				rec.Description = strings.TrimSpace(header[i+1:])
			}
			if rec.Name == "" {
				return nil, errors.Errorf("line %d: empty sequence name", lineNum)
			}
			if seen[rec.Name] {
				return nil, errors.Errorf("line %d: duplicate sequence name %s", lineNum, rec.Name)
			}
			seen[rec.Name] = true
			recs = append(recs, rec)
			continue
		}
		if len(recs) == 0 {
			return nil, errors.Errorf("line %d: sequence data before the first '>' header", lineNum)
		}
		seq.Write(bytes.ToUpper(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	flush()
	return recs, nil
}

// ReadFile reads the (optionally gzipped) FASTA file at path.
func ReadFile(ctx context.Context, path string) ([]Record, error) {
	in, err := util.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	recs, err := Read(in.Reader())
	if e := in.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	for _, r := range recs {
		if len(r.Seq) == 0 {
			log.Error.Printf("fasta: %s: sequence %s is empty", path, r.Name)
		}
	}
	log.Printf("fasta: read %d sequences from %s", len(recs), path)
	return recs, nil
}
