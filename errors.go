// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"github.com/pkg/errors"

	"dill.foo/xzmt/lzma"
)

var (
	// ErrCompressorFlushed is returned when Compress or Flush is called on a
	// Compressor whose terminal flush has already run.
	ErrCompressorFlushed = errors.New("xz: compressor has been flushed")

	// ErrDecompressorFinished is returned when Decompress is called after the
	// end of the stream was reached, or after a previous call surfaced a
	// codec error.
	ErrDecompressorFinished = errors.New("xz: decompressor cannot accept further input")

	// ErrTruncated is returned by the one-shot Decompress when the input ends
	// before the end-of-stream marker.
	ErrTruncated = errors.New("xz: compressed data ended before the end-of-stream marker was reached")

	// ErrNotSerializable is returned by every marshal method of Compressor
	// and Decompressor; the native codec handle has no byte representation.
	ErrNotSerializable = errors.New("xz: codec state cannot be serialized")

	// ErrMemLimit matches, via errors.Is, any codec error caused by the
	// decompressor memory limit. Callers can retry with a higher limit.
	ErrMemLimit error = &lzma.Error{Ret: lzma.MemLimitError}

	errClosed = errors.New("xz: closed")
)
