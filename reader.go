// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"io"
	"math"
	"runtime"

	"github.com/pkg/errors"

	"dill.foo/xzmt/lzma"
)

const defaultBufferSize = 32 * 1024

type reader struct {
	src     io.Reader
	stream  *lzma.Stream
	buf     []byte
	action  lzma.Action
	lastErr error
}

// NewReader creates a decoding reader over src. Concatenated streams are
// decoded back to back; stream padding between them is allowed. Equivalent
// to ReaderConfig{Threads: 1}.NewReader(src).
func NewReader(src io.Reader) io.ReadCloser {
	return ReaderConfig{Threads: 1}.NewReader(src)
}

// NewReader creates a decoding reader over src using this configuration.
// Unlike the Decompressor object, the reader treats concatenated streams as
// one logical stream, so Read yields the concatenation of their contents.
func (c ReaderConfig) NewReader(src io.Reader) io.ReadCloser {
	memlimit := c.Memlimit
	if memlimit == 0 {
		memlimit = math.MaxUint64
	}
	stream, err := c.newReaderStream(memlimit)
	return &reader{
		src:     src,
		stream:  stream,
		buf:     make([]byte, defaultBufferSize),
		action:  lzma.Run,
		lastErr: err,
	}
}

func (c ReaderConfig) newReaderStream(memlimit uint64) (*lzma.Stream, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}
	threads := c.Threads
	if threads != 1 && (c.Format == FormatXZ || c.Format == FormatAuto) && lzma.MTDecoderSafe() {
		return lzma.NewStreamDecoderMT(threadCount(threads), memlimit,
			lzma.Concatenated, lzma.TellUnsupportedCheck, lzma.FailFast)
	}
	switch c.Format {
	case FormatAlone:
		return lzma.NewAloneDecoder(memlimit)
	case FormatRaw:
		return lzma.NewRawDecoder(c.Filters)
	case FormatXZ:
		return lzma.NewStreamDecoder(memlimit, lzma.Concatenated, lzma.TellUnsupportedCheck)
	default:
		return lzma.NewAutoDecoder(memlimit, lzma.Concatenated, lzma.TellUnsupportedCheck)
	}
}

func (r *reader) Read(p []byte) (int, error) {
	if r.lastErr != nil || len(p) == 0 {
		return 0, r.lastErr
	}
	r.stream.SetNextOut(p)
	for {
		if r.stream.AvailableIn() == 0 {
			n, err := r.src.Read(r.buf)
			if err != nil && err != io.EOF {
				r.lastErr = err
				return 0, err
			}
			if err == io.EOF {
				r.action = lzma.Finish
			}
			r.stream.SetNextIn(r.buf[:n])
		}
		ret := r.stream.Code(r.action)
		written := len(p) - r.stream.AvailableOut()
		switch ret {
		case lzma.Ok:
			if r.stream.AvailableOut() == 0 {
				return written, nil
			}
		case lzma.StreamEnd:
			r.lastErr = io.EOF
			r.stream.End()
			return written, io.EOF
		default:
			r.lastErr = &lzma.Error{Ret: ret}
			r.stream.End()
			return written, r.lastErr
		}
	}
}

// Close closes the reader. If the caller consumes the entire Reader until
// io.EOF (or other error) as is typical with methods such as io.ReadAll then
// the resources will have been freed from the terminal Read call and Close
// will have no effect.
func (r *reader) Close() error {
	if r.lastErr == nil {
		r.lastErr = errors.New("xz: reader is closed")
		r.stream.End()
	}
	return nil
}

func threadCount(threads int) uint32 {
	if threads <= 0 {
		return uint32(runtime.NumCPU())
	}
	return uint32(threads)
}
