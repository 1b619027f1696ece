// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

// Command xzmt compresses and decompresses .xz files, using every logical
// CPU unless told otherwise.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mendersoftware/progressbar"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	xz "dill.foo/xzmt"
	"dill.foo/xzmt/lzma"
)

var checkNames = map[string]lzma.Check{
	"none":   lzma.CheckNone,
	"crc32":  lzma.CheckCRC32,
	"crc64":  lzma.CheckCRC64,
	"sha256": lzma.CheckSHA256,
}

func main() {
	app := &cli.App{
		Name:    "xzmt",
		Usage:   "compress or decompress .xz files with multiple threads",
		Version: fmt.Sprintf("liblzma %s", xz.Version()),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "decompress",
				Aliases: []string{"d"},
				Usage:   "decompress instead of compress",
			},
			&cli.BoolFlag{
				Name:    "stdout",
				Aliases: []string{"c"},
				Usage:   "write to standard output, keep input files",
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"T"},
				Usage:   "worker threads; 0 uses all logical CPUs",
				EnvVars: []string{"XZMT_THREADS"},
			},
			&cli.UintFlag{
				Name:    "preset",
				Aliases: []string{"p"},
				Usage:   "compression preset 0-9",
				Value:   uint(lzma.PresetDefault),
			},
			&cli.BoolFlag{
				Name:    "extreme",
				Aliases: []string{"e"},
				Usage:   "use the extreme variant of the preset",
			},
			&cli.StringFlag{
				Name:  "check",
				Usage: "integrity check: none, crc32, crc64 or sha256",
				Value: "crc64",
			},
			&cli.Uint64Flag{
				Name:    "memlimit",
				Usage:   "decoder memory limit in bytes; 0 is unlimited",
				EnvVars: []string{"XZMT_MEMLIMIT"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warning or error",
				Value: "info",
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetOutput(os.Stderr)
			return nil
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	check, ok := checkNames[ctx.String("check")]
	if !ok {
		return errors.Errorf("unknown integrity check %q", ctx.String("check"))
	}
	preset := lzma.Preset(ctx.Uint("preset"))
	if ctx.Bool("extreme") {
		preset |= lzma.PresetExtreme
	}
	wc := xz.WriterConfig{
		Check:   check,
		NoCheck: check == lzma.CheckNone,
		Preset:  preset,
		Preset0: preset&^lzma.PresetExtreme == 0,
		Threads: ctx.Int("threads"),
	}
	rc := xz.ReaderConfig{
		Memlimit: ctx.Uint64("memlimit"),
		Threads:  ctx.Int("threads"),
	}

	if ctx.NArg() == 0 {
		return pipe(ctx, wc, rc, os.Stdin, os.Stdout, -1)
	}
	for _, name := range ctx.Args().Slice() {
		if err := processFile(ctx, wc, rc, name); err != nil {
			return errors.Wrap(err, name)
		}
	}
	return nil
}

func processFile(ctx *cli.Context, wc xz.WriterConfig, rc xz.ReaderConfig, name string) error {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	var size int64 = -1
	if info, err := src.Stat(); err == nil {
		size = info.Size()
	}

	if ctx.Bool("stdout") {
		return pipe(ctx, wc, rc, src, os.Stdout, size)
	}

	outName, err := outputName(name, ctx.Bool("decompress"))
	if err != nil {
		return err
	}
	dst, err := os.OpenFile(outName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	log.Debugf("%s -> %s", name, outName)
	if err := pipe(ctx, wc, rc, src, dst, size); err != nil {
		dst.Close()
		os.Remove(outName)
		return err
	}
	return dst.Close()
}

func pipe(ctx *cli.Context, wc xz.WriterConfig, rc xz.ReaderConfig, src io.Reader, dst io.Writer, size int64) error {
	if size > 0 && dst != os.Stdout {
		src = newProgressReader(src, size)
	}
	if ctx.Bool("decompress") {
		dec := rc.NewReader(src)
		if _, err := io.Copy(dst, dec); err != nil {
			return err
		}
		return dec.Close()
	}
	enc, err := wc.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func outputName(name string, decompress bool) (string, error) {
	if !decompress {
		return name + ".xz", nil
	}
	switch {
	case strings.HasSuffix(name, ".xz"):
		return strings.TrimSuffix(name, ".xz"), nil
	case strings.HasSuffix(name, ".lzma"):
		return strings.TrimSuffix(name, ".lzma"), nil
	default:
		return "", errors.New("unknown suffix, use --stdout")
	}
}

type progressReader struct {
	src io.Reader
	bar *progressbar.Bar
}

func newProgressReader(src io.Reader, size int64) *progressReader {
	return &progressReader{src: src, bar: progressbar.New(size)}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.src.Read(b)
	if n > 0 {
		p.bar.Tick(int64(n))
	}
	if err == io.EOF {
		p.bar.Finish()
	}
	return n, err
}
