// Package util contains small helpers shared by the hla packages.
package util

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// Input is an opened input file. Gzip-compressed files (detected by file
// extension) are transparently decompressed.
type Input struct {
	path string
	f    file.File
	gz   *gzip.Reader
	r    io.Reader
}

// Open opens path for reading. The caller must call Close.
func Open(ctx context.Context, path string) (*Input, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	in := &Input{path: path, f: f, r: f.Reader(ctx)}
	if fileio.DetermineType(path) == fileio.Gzip {
		if in.gz, err = gzip.NewReader(in.r); err != nil {
			_ = f.Close(ctx)
			return nil, errors.E(err, "gunzip", path)
		}
		in.r = in.gz
	}
	return in, nil
}

// Reader returns the (decompressed) contents of the file.
func (in *Input) Reader() io.Reader { return in.r }

// Path returns the pathname passed to Open.
func (in *Input) Path() string { return in.path }

// Close closes the file.
func (in *Input) Close(ctx context.Context) error {
	var err error
	if in.gz != nil {
		err = in.gz.Close()
	}
	if e := in.f.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, "close", in.path)
	}
	return nil
}

// Output is a file opened for writing.
type Output struct {
	path string
	f    file.File
}

// Create creates path for writing. The caller must call Close, which commits
// the contents.
func Create(ctx context.Context, path string) (*Output, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	return &Output{path: path, f: f}, nil
}

// Writer returns the writer for the file.
func (out *Output) Writer(ctx context.Context) io.Writer { return out.f.Writer(ctx) }

// Close commits the file.
func (out *Output) Close(ctx context.Context) error {
	if err := out.f.Close(ctx); err != nil {
		return errors.E(err, "close", out.path)
	}
	return nil
}
