package coverage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/hla/util"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// isHeader reports whether a line starting with tok is a track, browser or
// comment line.
func isHeader(tok []byte) bool {
	return tok[0] == '#' || bytes.Equal(tok, []byte("track")) || bytes.Equal(tok, []byte("browser"))
}

// scanBedGraph parses bedgraph rows from r. Header lines and lines with fewer
// than four tokens are not data and are skipped.
func scanBedGraph(ctx context.Context, r io.Reader, fn func(Record) error) error {
	scanner := bufio.NewScanner(r)
	var tokens [4][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		if lineIdx%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		curLine := scanner.Bytes()
		n := getTokens(tokens[:], curLine)
		if n == 0 || isHeader(tokens[0]) || n != 4 {
			continue
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return fmt.Errorf("coverage.scanBedGraph: line %d: bad start: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return fmt.Errorf("coverage.scanBedGraph: line %d: bad end: %v", lineIdx, err)
		}
		if start < 0 || end < start {
			return fmt.Errorf("coverage.scanBedGraph: line %d: invalid interval [%d, %d)", lineIdx, start, end)
		}
		depth, err := strconv.ParseFloat(gunsafe.BytesToString(tokens[3]), 64)
		if err != nil {
			return fmt.Errorf("coverage.scanBedGraph: line %d: bad depth: %v", lineIdx, err)
		}
		// The contig name must be copied; it refers to the scanner's buffer.
		if err := fn(Record{Contig: string(tokens[0]), Start: start, End: end, Depth: depth}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// BedGraph is a Source reading bedgraph text from a reader.
type BedGraph struct {
	R io.Reader
}

// Scan implements Source.
func (b BedGraph) Scan(ctx context.Context, fn func(Record) error) error {
	return scanBedGraph(ctx, b.R, fn)
}

// BedGraphFile is a Source reading a bedgraph file, optionally gzipped.
type BedGraphFile struct {
	Path string
}

// Scan implements Source.
func (b BedGraphFile) Scan(ctx context.Context, fn func(Record) error) (err error) {
	in, err := util.Open(ctx, b.Path)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return scanBedGraph(ctx, in.Reader(), fn)
}
