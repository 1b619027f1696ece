// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"github.com/pkg/errors"
)

// The state machines wrap a native codec handle that has no byte
// representation, so every serialization protocol is refused explicitly.

func (c *Compressor) GobEncode() ([]byte, error) {
	return nil, errors.Wrap(ErrNotSerializable, "compressor")
}

func (c *Compressor) GobDecode([]byte) error {
	return errors.Wrap(ErrNotSerializable, "compressor")
}

func (c *Compressor) MarshalBinary() ([]byte, error) {
	return nil, errors.Wrap(ErrNotSerializable, "compressor")
}

func (c *Compressor) UnmarshalBinary([]byte) error {
	return errors.Wrap(ErrNotSerializable, "compressor")
}

func (c *Compressor) MarshalJSON() ([]byte, error) {
	return nil, errors.Wrap(ErrNotSerializable, "compressor")
}

func (d *Decompressor) GobEncode() ([]byte, error) {
	return nil, errors.Wrap(ErrNotSerializable, "decompressor")
}

func (d *Decompressor) GobDecode([]byte) error {
	return errors.Wrap(ErrNotSerializable, "decompressor")
}

func (d *Decompressor) MarshalBinary() ([]byte, error) {
	return nil, errors.Wrap(ErrNotSerializable, "decompressor")
}

func (d *Decompressor) UnmarshalBinary([]byte) error {
	return errors.Wrap(ErrNotSerializable, "decompressor")
}

func (d *Decompressor) MarshalJSON() ([]byte, error) {
	return nil, errors.Wrap(ErrNotSerializable, "decompressor")
}
