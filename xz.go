// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

// Package xz compresses and decompresses data with the C-lzma library,
// using its multi-threaded encoder and decoder where the caller asks for
// more than one thread.
package xz

import (
	"math"
	"runtime"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"dill.foo/xzmt/lzma"
)

// Format selects the container format.
type Format int

const (
	// FormatAuto detects .xz or LZMA_Alone input. Only valid for reading;
	// a WriterConfig left at FormatAuto writes FormatXZ.
	FormatAuto Format = iota
	// FormatXZ is the .xz container. The only format supported by the
	// multi-threaded paths.
	FormatXZ
	// FormatAlone is the legacy .lzma container.
	FormatAlone
	// FormatRaw is a headerless stream; it requires an explicit filter chain
	// on both sides.
	FormatRaw
)

func (f Format) valid() bool {
	return f >= FormatAuto && f <= FormatRaw
}

// WriterConfig parameterizes compressors. The zero value compresses to .xz
// with CRC64 checks at preset 6 using one thread per logical CPU.
type WriterConfig struct {
	// Format of the produced stream; FormatAuto means FormatXZ.
	Format Format

	// Check is the integrity check embedded in each block. The zero value
	// selects CRC64; set NoCheck to emit no check at all. Only FormatXZ
	// carries checks.
	Check   lzma.Check
	NoCheck bool

	// Preset is the compression level 0-9, optionally OR'd with
	// lzma.PresetExtreme. The zero value selects the default preset 6; set
	// Preset0 for the literal fastest level.
	Preset  lzma.Preset
	Preset0 bool

	// Filters is an explicit filter chain. Honored only when Threads == 1
	// and exclusive with Preset; required for FormatRaw.
	Filters []lzma.Filter

	// Threads is the worker count for the multi-threaded encoder. Zero
	// auto-detects the logical CPU count; one selects the plain
	// single-stream encoder.
	Threads int

	// BlockSize is the uncompressed bytes per block in multi-threaded mode.
	// Zero leaves the choice to the codec.
	BlockSize uint64
}

func (c WriterConfig) withDefaults() WriterConfig {
	if c.Format == FormatAuto {
		c.Format = FormatXZ
	}
	if c.Check == lzma.CheckNone && !c.NoCheck && c.Format == FormatXZ {
		c.Check = lzma.CheckCRC64
	}
	if c.Preset == 0 && !c.Preset0 {
		c.Preset = lzma.PresetDefault
	}
	return c
}

// Verify checks the configuration without touching the native library.
// Preset validity is deliberately left to the codec.
func (c WriterConfig) Verify() error {
	c = c.withDefaults()
	if c.Threads < 0 {
		return errors.Errorf("xz: threads must not be negative, got %d", c.Threads)
	}
	if !c.Format.valid() || c.Format == FormatAuto {
		return errors.Errorf("xz: invalid write format %d", c.Format)
	}
	if !c.Check.Valid() {
		return errors.Errorf("xz: invalid integrity check %d", c.Check)
	}
	if c.Format != FormatXZ && (c.Check != lzma.CheckNone || c.NoCheck) {
		return errors.New("xz: integrity checks are only supported by the xz format")
	}
	if c.Format == FormatRaw && len(c.Filters) == 0 {
		return errors.New("xz: raw format requires a filter chain")
	}
	if len(c.Filters) > 0 && (c.Preset != lzma.PresetDefault || c.Preset0) && c.Threads == 1 {
		return errors.New("xz: cannot specify both preset and filter chain")
	}
	if c.Format == FormatAlone && len(c.Filters) > 0 {
		return errors.New("xz: the alone format accepts a preset only")
	}
	return nil
}

// NewCompressor allocates the native encoder for this configuration. With
// Threads != 1 the multi-threaded encoder is used; it requires FormatXZ and
// ignores Filters in favor of Preset.
func (c WriterConfig) NewCompressor() (*Compressor, error) {
	c = c.withDefaults()
	if err := c.Verify(); err != nil {
		return nil, err
	}
	threads := c.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	if threads != 1 && c.Format != FormatXZ {
		return nil, errors.New("xz: multi-threaded encoding requires the xz format")
	}

	var stream *lzma.Stream
	var err error
	if threads == 1 {
		switch c.Format {
		case FormatXZ:
			if len(c.Filters) > 0 {
				stream, err = lzma.NewStreamEncoder(c.Filters, c.Check)
			} else {
				stream, err = lzma.NewEasyEncoder(c.Preset, c.Check)
			}
		case FormatAlone:
			stream, err = lzma.NewAloneEncoder(c.Preset)
		case FormatRaw:
			stream, err = lzma.NewRawEncoder(c.Filters)
		}
	} else {
		stream, err = lzma.NewStreamEncoderMT(uint32(threads), c.Preset, c.Check, c.BlockSize)
	}
	if err != nil {
		return nil, err
	}
	return &Compressor{stream: stream}, nil
}

// Compress runs data through a fresh compressor and returns the complete
// stream.
func (c WriterConfig) Compress(data []byte) ([]byte, error) {
	comp, err := c.NewCompressor()
	if err != nil {
		return nil, err
	}
	defer comp.Close()
	body, err := comp.Compress(data)
	if err != nil {
		return nil, err
	}
	tail, err := comp.Flush()
	if err != nil {
		return nil, err
	}
	return append(body, tail...), nil
}

// Compress compresses data to a single .xz stream with the default
// parameters: CRC64 check, preset 6, one thread.
func Compress(data []byte) ([]byte, error) {
	return WriterConfig{Threads: 1}.Compress(data)
}

// ReaderConfig parameterizes decompressors. The zero value auto-detects the
// format, applies no memory limit and uses one thread per logical CPU.
type ReaderConfig struct {
	// Format of the consumed stream; FormatAuto detects .xz and LZMA_Alone.
	// When the threaded decoder is used (Threads != 1 and MTDecoderSafe),
	// FormatAuto accepts .xz input only.
	Format Format

	// Memlimit bounds the decoder memory in bytes; zero means no limit.
	// Streams whose dictionary does not fit surface ErrMemLimit.
	Memlimit uint64

	// Filters describes the chain of a FormatRaw stream; invalid otherwise.
	Filters []lzma.Filter

	// Threads is the worker count for the multi-threaded decoder. Zero
	// auto-detects the logical CPU count; one selects the plain
	// single-stream decoder. Ignored for FormatAlone and FormatRaw.
	Threads int
}

// Verify checks the configuration without touching the native library.
func (c ReaderConfig) Verify() error {
	if c.Threads < 0 {
		return errors.Errorf("xz: threads must not be negative, got %d", c.Threads)
	}
	if !c.Format.valid() {
		return errors.Errorf("xz: invalid read format %d", c.Format)
	}
	if c.Format == FormatRaw && len(c.Filters) == 0 {
		return errors.New("xz: raw format requires a filter chain")
	}
	if c.Format != FormatRaw && len(c.Filters) > 0 {
		return errors.New("xz: filters are only valid with the raw format")
	}
	return nil
}

// NewDecompressor allocates the native decoder for this configuration.
// Multi-threaded decoding applies to .xz input only, and silently falls back
// to the single-threaded decoder on liblzma versions whose threaded decoder
// is unsafe.
func (c ReaderConfig) NewDecompressor() (*Decompressor, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}
	memlimit := c.Memlimit
	if memlimit == 0 {
		memlimit = math.MaxUint64
	}
	threads := c.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	useMT := threads != 1 && (c.Format == FormatXZ || c.Format == FormatAuto)
	if useMT && !lzma.MTDecoderSafe() {
		log.Debugf("xz: threaded decoder disabled for liblzma %s, decoding single-threaded", lzma.Version())
		useMT = false
	}

	var stream *lzma.Stream
	var err error
	if useMT {
		stream, err = lzma.NewStreamDecoderMT(uint32(threads), memlimit, lzma.FailFast)
	} else {
		switch c.Format {
		case FormatAuto:
			stream, err = lzma.NewAutoDecoder(memlimit)
		case FormatXZ:
			stream, err = lzma.NewStreamDecoder(memlimit)
		case FormatAlone:
			stream, err = lzma.NewAloneDecoder(memlimit)
		case FormatRaw:
			stream, err = lzma.NewRawDecoder(c.Filters)
		}
	}
	if err != nil {
		return nil, err
	}
	return &Decompressor{stream: stream, needsInput: true}, nil
}

// Decompress decodes data, transparently handling concatenated streams.
// Trailing bytes after at least one complete stream are discarded when they
// fail to decode or decode to no output (garbage, stream padding); an
// incomplete first stream, or a later one that yields output but never
// ends, is ErrTruncated.
func (c ReaderConfig) Decompress(data []byte) ([]byte, error) {
	var out []byte
	streams := 0
	for {
		dec, err := c.NewDecompressor()
		if err != nil {
			return nil, err
		}
		res, err := dec.Decompress(data, -1)
		if err != nil {
			dec.Close()
			if streams > 0 {
				// trailing bytes did not form another stream
				return out, nil
			}
			return nil, err
		}
		if !dec.EOF() {
			dec.Close()
			if streams > 0 && len(res) == 0 {
				// trailing bytes, such as stream padding, yielded nothing
				return out, nil
			}
			return nil, ErrTruncated
		}
		out = append(out, res...)
		data = dec.UnusedData()
		dec.Close()
		streams++
		if len(data) == 0 {
			return out, nil
		}
	}
}

// Decompress decodes data with the default parameters: auto-detected format,
// no memory limit, one thread.
func Decompress(data []byte) ([]byte, error) {
	return ReaderConfig{Threads: 1}.Decompress(data)
}

// Version returns the runtime version of the native library as
// "MAJOR.MINOR.PATCH".
func Version() string {
	return lzma.Version()
}

// MTDecoderSafe reports whether the native library's threaded decoder is
// safe to use. When false, decompressors requested multi-threaded degrade to
// single-threaded decoding.
func MTDecoderSafe() bool {
	return lzma.MTDecoderSafe()
}
