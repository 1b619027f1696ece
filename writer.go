// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"io"

	"github.com/pkg/errors"
)

type writer struct {
	dst     io.Writer
	comp    *Compressor
	lastErr error
}

// NewWriter creates an encoding writer to dst with the default parameters.
// The stream is finished when the writer is closed.
func NewWriter(dst io.Writer) (io.WriteCloser, error) {
	return WriterConfig{Threads: 1}.NewWriter(dst)
}

// NewWriter creates an encoding writer to dst using this configuration.
func (c WriterConfig) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	comp, err := c.NewCompressor()
	if err != nil {
		return nil, err
	}
	return &writer{dst: dst, comp: comp}, nil
}

func (w *writer) Write(p []byte) (int, error) {
	if w.lastErr != nil {
		return 0, w.lastErr
	}
	out, err := w.comp.Compress(p)
	if err != nil {
		w.lastErr = err
		return 0, err
	}
	if len(out) > 0 {
		if _, err := w.dst.Write(out); err != nil {
			w.lastErr = err
			w.comp.Close()
			return 0, err
		}
	}
	return len(p), nil
}

// Close finishes the stream and writes the footer. It does not close the
// underlying writer.
func (w *writer) Close() error {
	if w.lastErr != nil {
		if errors.Is(w.lastErr, errClosed) {
			return nil
		}
		return w.lastErr
	}
	w.lastErr = errClosed
	out, err := w.comp.Flush()
	w.comp.Close()
	if err != nil {
		return err
	}
	if len(out) > 0 {
		if _, err := w.dst.Write(out); err != nil {
			return err
		}
	}
	return nil
}
