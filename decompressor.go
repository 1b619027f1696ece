// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"dill.foo/xzmt/lzma"
)

// A Decompressor incrementally decodes one compressed stream. Input may be
// fed in chunks of any size, including empty ones, and each call can bound
// how much output it is willing to receive.
//
// A Decompressor is not safe for concurrent use.
type Decompressor struct {
	stream     *lzma.Stream
	buf        inputBuffer
	eof        bool
	poisoned   bool
	closed     bool
	needsInput bool
	unused     []byte
}

// EOF reports whether the end of the stream has been reached. Once true, any
// bytes fed beyond the stream are available from UnusedData and further
// Decompress calls fail.
func (d *Decompressor) EOF() bool {
	return d.eof
}

// NeedsInput reports whether the decoder has consumed all buffered input and
// can make no progress until more data arrives.
func (d *Decompressor) NeedsInput() bool {
	return d.needsInput
}

// UnusedData returns the bytes that were fed past the end of the stream.
// Empty until EOF reports true.
func (d *Decompressor) UnusedData() []byte {
	if d.unused == nil {
		return []byte{}
	}
	return d.unused
}

// Decompress feeds data to the decoder and returns up to maxLength bytes of
// output; maxLength -1 means unbounded. With maxLength zero the input is
// only buffered and no decoding happens. Leftover input is retained and
// consumed by later calls.
//
// Once the decoder has surfaced a codec error the Decompressor accepts no
// further input and every call fails with ErrDecompressorFinished, as after
// the end of the stream.
func (d *Decompressor) Decompress(data []byte, maxLength int) ([]byte, error) {
	if d.closed {
		return nil, errClosed
	}
	if d.eof || d.poisoned {
		return nil, ErrDecompressorFinished
	}
	d.buf.feed(data)
	if maxLength == 0 {
		d.needsInput = d.buf.len() == 0
		return []byte{}, nil
	}

	out := newOutputCollector(maxLength)
	for {
		dst := out.window()
		if dst == nil {
			break
		}
		in := d.buf.window()
		d.stream.SetNextIn(in)
		d.stream.SetNextOut(dst)
		ret := d.stream.Code(lzma.Run)
		consumed := len(in) - d.stream.AvailableIn()
		written := len(dst) - d.stream.AvailableOut()
		d.buf.advance(consumed)
		out.commit(written)

		stop := false
		switch ret {
		case lzma.StreamEnd:
			d.eof = true
			d.unused = append([]byte(nil), d.buf.window()...)
			d.buf.advance(d.buf.len())
			stop = true
		case lzma.Ok:
			// stop when the output bound is hit or the codec made no
			// progress and is waiting for more input
			stop = out.full() || (consumed == 0 && written == 0)
		case lzma.BufError:
			// not fatal while the codec is merely starved of input or
			// output room
			if d.buf.len() == 0 || out.full() {
				stop = true
				break
			}
			d.poisoned = true
			return nil, &lzma.Error{Ret: ret}
		default:
			d.poisoned = true
			return nil, &lzma.Error{Ret: ret}
		}
		if stop {
			break
		}
	}

	d.needsInput = d.buf.len() == 0 && !d.eof
	return out.bytes(), nil
}

// Close releases the native decoder. It is safe to call on any state and
// more than once.
func (d *Decompressor) Close() error {
	d.closed = true
	d.stream.End()
	return nil
}
