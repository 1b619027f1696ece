// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package lzma

/*
#include <stdlib.h>
#include <lzma.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// FilterID identifies a liblzma filter.
type FilterID uint64

const (
	FilterLZMA1    FilterID = 0x4000000000000001
	FilterLZMA2    FilterID = 0x21
	FilterDelta    FilterID = 0x03
	FilterX86      FilterID = 0x04
	FilterPowerPC  FilterID = 0x05
	FilterIA64     FilterID = 0x06
	FilterARM      FilterID = 0x07
	FilterARMThumb FilterID = 0x08
	FilterSPARC    FilterID = 0x09
)

// filtersMax mirrors LZMA_FILTERS_MAX: at most four filters per chain.
const filtersMax = 4

// Filter describes one entry of a filter chain. For the LZMA1 and LZMA2
// filters, Preset seeds the options and DictSize, when non-zero, overrides
// the preset's dictionary size. For the Delta filter Dist is the byte
// distance (1-256, zero means 1). The branch/call/jump filters take no
// options.
type Filter struct {
	ID       FilterID
	Preset   Preset
	DictSize uint32
	Dist     uint32
}

// buildFilterChain converts a chain to a LZMA_VLI_UNKNOWN-terminated native
// array. Options structs are allocated on the C heap because liblzma keeps
// pointers to them until init returns; release with freeFilterChain.
func buildFilterChain(filters []Filter) (*C.lzma_filter, error) {
	if len(filters) == 0 {
		return nil, &Error{Ret: ProgError}
	}
	if len(filters) > filtersMax {
		return nil, fmt.Errorf("lzma: too many filters (%d, max %d)", len(filters), filtersMax)
	}
	chain := (*C.lzma_filter)(C.calloc(C.size_t(len(filters)+1), C.sizeof_lzma_filter))
	entries := unsafe.Slice(chain, len(filters)+1)
	for i, f := range filters {
		entries[i].id = C.lzma_vli(f.ID)
		switch f.ID {
		case FilterLZMA1, FilterLZMA2:
			options := (*C.lzma_options_lzma)(C.calloc(1, C.sizeof_lzma_options_lzma))
			if C.lzma_lzma_preset(options, C.uint32_t(f.Preset)) != 0 {
				freeFilterChain(chain, i)
				return nil, &Error{Ret: OptionsError}
			}
			if f.DictSize != 0 {
				options.dict_size = C.uint32_t(f.DictSize)
			}
			entries[i].options = unsafe.Pointer(options)
		case FilterDelta:
			options := (*C.lzma_options_delta)(C.calloc(1, C.sizeof_lzma_options_delta))
			options._type = C.LZMA_DELTA_TYPE_BYTE
			dist := f.Dist
			if dist == 0 {
				dist = 1
			}
			options.dist = C.uint32_t(dist)
			entries[i].options = unsafe.Pointer(options)
		case FilterX86, FilterPowerPC, FilterIA64, FilterARM, FilterARMThumb, FilterSPARC:
			entries[i].options = nil
		default:
			freeFilterChain(chain, i)
			return nil, fmt.Errorf("lzma: unknown filter id %#x", uint64(f.ID))
		}
	}
	entries[len(filters)].id = C.lzma_vli(C.LZMA_VLI_UNKNOWN)
	return chain, nil
}

func freeFilterChain(chain *C.lzma_filter, n int) {
	if chain == nil {
		return
	}
	entries := unsafe.Slice(chain, n+1)
	for i := 0; i < n; i++ {
		if entries[i].options != nil {
			C.free(entries[i].options)
		}
	}
	C.free(unsafe.Pointer(chain))
}
