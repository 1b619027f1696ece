// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"dill.foo/xzmt/lzma"
)

// A Compressor incrementally builds one compressed stream. Feed input with
// Compress in chunks of any size, then call Flush exactly once to finish the
// stream. The encoder is entitled to buffer, so any individual Compress call
// may return no bytes; the concatenation of all returned byte slices forms
// the stream.
//
// A Compressor is not safe for concurrent use.
type Compressor struct {
	stream  *lzma.Stream
	flushed bool
	closed  bool
}

// Compress feeds data to the encoder and returns whatever compressed bytes
// it produced, possibly none. It fails after Flush has been called.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if c.closed {
		return nil, errClosed
	}
	if c.flushed {
		return nil, ErrCompressorFlushed
	}
	out := newOutputCollector(-1)
	c.stream.SetNextIn(data)
	for c.stream.AvailableIn() > 0 {
		dst := out.window()
		c.stream.SetNextOut(dst)
		before := c.stream.AvailableIn()
		ret := c.stream.Code(lzma.Run)
		out.commit(len(dst) - c.stream.AvailableOut())
		if ret != lzma.Ok {
			c.stream.End()
			c.closed = true
			return nil, &lzma.Error{Ret: ret}
		}
		if c.stream.AvailableIn() == before && c.stream.AvailableOut() == len(dst) {
			c.stream.End()
			c.closed = true
			return nil, &lzma.Error{Ret: lzma.BufError}
		}
	}
	return out.bytes(), nil
}

// Flush finishes the stream, returning the remaining compressed bytes
// including the stream footer. After Flush the Compressor accepts no more
// input; a second Flush fails.
func (c *Compressor) Flush() ([]byte, error) {
	if c.closed {
		return nil, errClosed
	}
	if c.flushed {
		return nil, ErrCompressorFlushed
	}
	out := newOutputCollector(-1)
	c.stream.SetNextIn(nil)
	for {
		dst := out.window()
		c.stream.SetNextOut(dst)
		ret := c.stream.Code(lzma.Finish)
		out.commit(len(dst) - c.stream.AvailableOut())
		if ret == lzma.StreamEnd {
			break
		}
		if ret != lzma.Ok {
			c.stream.End()
			c.closed = true
			return nil, &lzma.Error{Ret: ret}
		}
	}
	c.flushed = true
	c.stream.End()
	return out.bytes(), nil
}

// Close releases the native encoder. It is safe to call on any state and
// more than once.
func (c *Compressor) Close() error {
	c.closed = true
	c.stream.End()
	return nil
}
