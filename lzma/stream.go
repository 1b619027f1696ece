// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

// Package lzma encodes and decodes data with the C-lzma library.
package lzma

/*
#cgo !nopkgconfig pkg-config: liblzma

#include <stdlib.h>
#include <lzma.h>

// Alias the LZMA_STREAM_INIT macro.
lzma_stream stream_init() {
	return (lzma_stream) LZMA_STREAM_INIT;
}

lzma_ret safe_lzma_code(lzma_stream *stream, lzma_action action) {
	lzma_ret ret = lzma_code(stream, action);

	// lzma_code advances the pointers which is not safe in go if it exceeds the
	// original slice bounds. Therefore, if we reach the end of stream->avail_*
	// assume we have gone off the end of the slice and therefore must null the
	// now invalid reference out.
	if (stream->avail_out == 0) {
      stream->next_out = NULL;
	}
    if (stream->avail_in == 0) {
      stream->next_in = NULL;
	}
    return ret;
}
*/
import "C"
import (
	"runtime"
	"strconv"
	"unsafe"
)

type Stream struct {
	internal C.lzma_stream
	pinner   runtime.Pinner
	ended    bool
}

// Return values used by several functions in liblzma.
type Return int

const (
	Ok               Return = iota // operation completed successfully
	StreamEnd                      // end of stream was reached.
	NoCheck                        // input stream has no integrity check
	UnsupportedCheck               // cannot calculate the integrity check
	GetCheck                       // integrity check type is now available
	MemError                       // cannot allocate memory
	MemLimitError                  // memory usage limit was reached
	FormatError                    // file format not recognized
	OptionsError                   // invalid or unsupported options
	DataError                      // data is corrupt
	BufError                       // no progress is possible
	ProgError                      // programming error
	SeekNeeded                     // request to change the input file position
)

var returnStrings = map[Return]string{
	Ok:               "ok",
	StreamEnd:        "end of stream was reached",
	NoCheck:          "input stream has no integrity check",
	UnsupportedCheck: "cannot calculate the integrity check",
	GetCheck:         "integrity check type is now available",
	MemError:         "cannot allocate memory",
	MemLimitError:    "memory usage limit was reached",
	FormatError:      "file format not recognized",
	OptionsError:     "invalid or unsupported options",
	DataError:        "data is corrupt",
	BufError:         "no progress is possible",
	ProgError:        "programming error",
	SeekNeeded:       "request to change the input file position",
}

func (r Return) String() string {
	if s, ok := returnStrings[r]; ok {
		return s
	}
	return "unknown return code " + strconv.Itoa(int(r))
}

// Error is reported whenever liblzma returns a code that is not Ok or
// StreamEnd.
type Error struct {
	Ret Return
}

func (e *Error) Error() string {
	return "lzma: " + e.Ret.String()
}

// Is matches by return code so that sentinels built from a Return compare
// equal to wrapped instances under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Ret == e.Ret
}

func initError(ret Return) error {
	if ret == Ok {
		return nil
	}
	return &Error{Ret: ret}
}

// Action used by Stream.Code.
type Action int

const (
	Run         Action = iota // continue coding
	SyncFlush                 // make all the input available at output
	FullFlush                 // finish encoding of the current block
	Finish                    // finish the coding operation
	FullBarrier               // finish encoding of the current block
)

// A DecoderOpt can be passed in when initializing a decoder.
type DecoderOpt int32

const (
	TellNoCheck          DecoderOpt = 1 << iota // enables NoCheck
	TellUnsupportedCheck                        // enables UnsupportedCheck
	TellAnyCheck                                // enables GetCheck
	Concatenated                                // enables concatenated file support
	IgnoreCheck                                 // disables DataError for invalid integrity checks. Since liblzma 5.1.4beta
	FailFast                                    // enables eagerly returning errors in threaded decoding. Since liblzma 5.3.3alpha
)

// Check identifies the integrity check embedded in each .xz block.
type Check int32

const (
	CheckNone   Check = 0
	CheckCRC32  Check = 1
	CheckCRC64  Check = 4
	CheckSHA256 Check = 10
)

// Valid reports whether the check is one liblzma can embed in a stream.
func (c Check) Valid() bool {
	switch c {
	case CheckNone, CheckCRC32, CheckCRC64, CheckSHA256:
		return true
	}
	return false
}

// Preset is a compression level 0-9, optionally OR'd with PresetExtreme.
// Values outside that range are rejected by liblzma at encoder init.
type Preset uint32

const (
	PresetDefault Preset = 6
	PresetExtreme Preset = 1 << 31
)

func combineDecoderOpts(flags []DecoderOpt) int32 {
	var combined int32
	for _, flag := range flags {
		combined |= int32(flag)
	}
	return combined
}

// NewStreamDecoder initializes an .xz Stream decoder.
func NewStreamDecoder(memlimit uint64, flags ...DecoderOpt) (*Stream, error) {
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_stream_decoder(
			(*C.lzma_stream)(&stream.internal),
			C.uint64_t(memlimit),
			C.uint32_t(combineDecoderOpts(flags)),
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewStreamDecoderMT initializes a threaded .xz Stream decoder. memlimit is
// applied both as the hard stop and as the threading limit, so liblzma sheds
// worker threads before it gives up. Since liblzma 5.3.3alpha.
func NewStreamDecoderMT(threads uint32, memlimit uint64, flags ...DecoderOpt) (*Stream, error) {
	if threads == 0 {
		threads = 1
	}
	stream := Stream{
		internal: C.stream_init(),
	}
	options := C.lzma_mt{
		flags:              C.uint32_t(combineDecoderOpts(flags)),
		threads:            C.uint32_t(threads),
		memlimit_threading: C.uint64_t(memlimit),
		memlimit_stop:      C.uint64_t(memlimit),
	}
	ret := Return(
		C.lzma_stream_decoder_mt(
			(*C.lzma_stream)(&stream.internal),
			&options,
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewAutoDecoder initializes a decoder that detects .xz and LZMA_Alone input.
func NewAutoDecoder(memlimit uint64, flags ...DecoderOpt) (*Stream, error) {
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_auto_decoder(
			(*C.lzma_stream)(&stream.internal),
			C.uint64_t(memlimit),
			C.uint32_t(combineDecoderOpts(flags)),
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewAloneDecoder initializes a legacy LZMA_Alone (.lzma) decoder.
func NewAloneDecoder(memlimit uint64) (*Stream, error) {
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_alone_decoder(
			(*C.lzma_stream)(&stream.internal),
			C.uint64_t(memlimit),
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewRawDecoder initializes a decoder for a headerless stream described by
// the given filter chain.
func NewRawDecoder(filters []Filter) (*Stream, error) {
	chain, err := buildFilterChain(filters)
	if err != nil {
		return nil, err
	}
	defer freeFilterChain(chain, len(filters))
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_raw_decoder(
			(*C.lzma_stream)(&stream.internal),
			chain,
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewEasyEncoder initializes an .xz Stream encoder from a preset.
func NewEasyEncoder(preset Preset, check Check) (*Stream, error) {
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_easy_encoder(
			(*C.lzma_stream)(&stream.internal),
			C.uint32_t(preset),
			C.lzma_check(check),
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewStreamEncoder initializes an .xz Stream encoder from an explicit filter
// chain.
func NewStreamEncoder(filters []Filter, check Check) (*Stream, error) {
	chain, err := buildFilterChain(filters)
	if err != nil {
		return nil, err
	}
	defer freeFilterChain(chain, len(filters))
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_stream_encoder(
			(*C.lzma_stream)(&stream.internal),
			chain,
			C.lzma_check(check),
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewStreamEncoderMT initializes a threaded .xz Stream encoder. The encoder
// splits input into independently compressed blocks; blockSize zero leaves
// the choice to liblzma (three times the dictionary size of the preset).
func NewStreamEncoderMT(threads uint32, preset Preset, check Check, blockSize uint64) (*Stream, error) {
	if threads == 0 {
		threads = 1
	}
	stream := Stream{
		internal: C.stream_init(),
	}
	options := C.lzma_mt{
		threads:    C.uint32_t(threads),
		block_size: C.uint64_t(blockSize),
		preset:     C.uint32_t(preset),
		check:      C.lzma_check(check),
	}
	ret := Return(
		C.lzma_stream_encoder_mt(
			(*C.lzma_stream)(&stream.internal),
			&options,
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewAloneEncoder initializes a legacy LZMA_Alone (.lzma) encoder.
func NewAloneEncoder(preset Preset) (*Stream, error) {
	var options C.lzma_options_lzma
	if C.lzma_lzma_preset(&options, C.uint32_t(preset)) != 0 {
		return nil, &Error{Ret: OptionsError}
	}
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_alone_encoder(
			(*C.lzma_stream)(&stream.internal),
			&options,
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

// NewRawEncoder initializes an encoder that emits a headerless stream
// described by the given filter chain.
func NewRawEncoder(filters []Filter) (*Stream, error) {
	chain, err := buildFilterChain(filters)
	if err != nil {
		return nil, err
	}
	defer freeFilterChain(chain, len(filters))
	stream := Stream{
		internal: C.stream_init(),
	}
	ret := Return(
		C.lzma_raw_encoder(
			(*C.lzma_stream)(&stream.internal),
			chain,
		),
	)
	if err := initError(ret); err != nil {
		return nil, err
	}
	return &stream, nil
}

func (stream *Stream) SetNextIn(in []byte) {
	stream.internal.next_in = (*C.uint8_t)(unsafe.SliceData(in))
	stream.internal.avail_in = C.size_t(len(in))
}

func (stream *Stream) AvailableIn() int {
	return int(stream.internal.avail_in)
}

func (stream *Stream) SetNextOut(out []byte) {
	stream.internal.next_out = (*C.uint8_t)(unsafe.SliceData(out))
	stream.internal.avail_out = C.size_t(len(out))
}

func (stream *Stream) AvailableOut() int {
	return int(stream.internal.avail_out)
}

// Code encodes or decodes data based on how the Stream has been initialized,
// and it's current state as set by Stream.SetNextIn and Stream.SetNextOut.
func (stream *Stream) Code(action Action) Return {
	stream.pin()
	defer stream.pinner.Unpin()

	return Return(C.safe_lzma_code((*C.lzma_stream)(&stream.internal), C.lzma_action(action)))
}

// End frees memory allocated for the coder data structures used internally.
// Calling End more than once is allowed; only the first call releases.
func (stream *Stream) End() {
	if stream.ended {
		return
	}
	stream.ended = true

	stream.pin()
	defer stream.pinner.Unpin()

	C.lzma_end((*C.lzma_stream)(&stream.internal))
}

func (stream *Stream) pin() {
	if stream.internal.next_in != nil {
		stream.pinner.Pin(stream.internal.next_in)
	}
	if stream.internal.next_out != nil {
		stream.pinner.Pin(stream.internal.next_out)
	}
}
