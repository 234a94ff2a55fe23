// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/pkg/job"
)

// UPXBackend wraps an external in-place PE/ELF/Mach-O compressor.
type UPXBackend struct{}

func (UPXBackend) Name() string { return "upx" }

func (UPXBackend) Score(spec job.Spec, input InputInfo) int {
	score := 50
	if input.IsPE {
		score += 40
	}
	if input.IsExecutable {
		score += 30
	}
	if input.SizeBytes > 10<<20 {
		score += 10
	} else if input.SizeBytes > 1<<20 {
		score += 5
	}
	if input.SizeBytes < 100<<10 {
		score -= 20
	}
	return clampScore(score)
}

func (UPXBackend) BuildArgs(spec job.Spec, input InputInfo) []string {
	level := spec.CompressionLevel
	if level == 0 {
		level = 9
	}
	return []string{"-" + itoa(level), input.Path}
}

func (UPXBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{input.Path} // in-place
}

// zstdLZMABackend stands in for an LZMA-class general-purpose
// dictionary compressor: always available, no external dependency.
type zstdLZMABackend struct{}

func (zstdLZMABackend) Name() string { return "lzma" }

func (zstdLZMABackend) Score(spec job.Spec, input InputInfo) int {
	score := 60
	if input.SizeBytes > 1<<20 {
		score += 20
	}
	if input.IsExecutable {
		score -= 30
	}
	return clampScore(score)
}

func (zstdLZMABackend) BuildArgs(spec job.Spec, input InputInfo) []string { return nil }
func (zstdLZMABackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{input.Path + ".lzma"}
}

func (b zstdLZMABackend) RunInProcess(spec job.Spec, input InputInfo) (Outcome, *builderrors.BuildError) {
	return runZstdLike(spec, input, b.Name(), input.Path+".lzma")
}

// brotliLikeBackend stands in for a text-favoring entropy compressor,
// available only when linked; here that condition is always true
// since it costs nothing extra to link klauspost/compress.
type brotliLikeBackend struct{}

func (brotliLikeBackend) Name() string { return "brotli" }

func (brotliLikeBackend) Score(spec job.Spec, input InputInfo) int {
	score := 65
	if isTextLikeExtension(input.Extension) {
		score += 25
	}
	if input.IsExecutable {
		score -= 40
	}
	return clampScore(score)
}

func (brotliLikeBackend) BuildArgs(spec job.Spec, input InputInfo) []string { return nil }
func (brotliLikeBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{input.Path + ".br"}
}

func (b brotliLikeBackend) RunInProcess(spec job.Spec, input InputInfo) (Outcome, *builderrors.BuildError) {
	data, err := os.ReadFile(input.Path)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "read input for brotli-like compression", err)
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "init flate writer", err)
	}
	if _, err := w.Write(data); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "compress with flate", err)
	}
	if err := w.Close(); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "close flate writer", err)
	}

	outPath := input.Path + ".br"
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "write compressed output", err)
	}

	return Outcome{ToolName: "brotli", ArtifactPath: outPath, ByteSize: int64(buf.Len())}, nil
}

// DefaultCompressBackends returns one instance of every compress-stage
// backend this package implements, ready to hand to scheduler.New.
func DefaultCompressBackends() []Backend {
	return []Backend{
		UPXBackend{},
		zstdLZMABackend{},
		brotliLikeBackend{},
		AdaptiveBackend{},
	}
}

func isTextLikeExtension(ext string) bool {
	switch ext {
	case ".py", ".txt", ".json", ".yaml", ".yml", ".csv", ".md":
		return true
	default:
		return false
	}
}

// AdaptiveBackend analyzes input entropy and byte-repetition ratio,
// then delegates to the LZMA-like codec when the input looks highly
// compressible by dictionary matching, otherwise to the Brotli-like
// codec for any input under 1 MiB, else LZMA-like at a lower preset.
// Output is written in the framed PFC\x01 container.
type AdaptiveBackend struct{}

func (AdaptiveBackend) Name() string { return "adaptive" }

func (AdaptiveBackend) Score(spec job.Spec, input InputInfo) int {
	score := 70 + 15 // flexibility bonus
	if input.SizeBytes > 500<<10 {
		score += 10
	}
	return clampScore(score)
}

func (AdaptiveBackend) BuildArgs(spec job.Spec, input InputInfo) []string { return nil }
func (AdaptiveBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{input.Path + ".pfc"}
}

func (b AdaptiveBackend) RunInProcess(spec job.Spec, input InputInfo) (Outcome, *builderrors.BuildError) {
	data, err := os.ReadFile(input.Path)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "read input for adaptive compression", err)
	}

	entropy := byteEntropy(data)
	repetition := repetitionRatio(data)

	var payload []byte
	switch {
	case entropy < 6.0 && repetition > 0.3:
		payload, err = zstdCompress(data, zstd.SpeedBestCompression)
	case input.SizeBytes < 1<<20:
		payload, err = flateCompress(data, flate.BestCompression)
	default:
		payload, err = zstdCompress(data, zstd.SpeedDefault)
	}
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "adaptive compression delegate failed", err)
	}

	framed := frameAdaptive(len(data), payload)
	outPath := input.Path + ".pfc"
	if err := os.WriteFile(outPath, framed, 0o644); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "write adaptive output", err)
	}

	return Outcome{ToolName: "adaptive", ArtifactPath: outPath, ByteSize: int64(len(framed))}, nil
}

func runZstdLike(spec job.Spec, input InputInfo, toolName, outPath string) (Outcome, *builderrors.BuildError) {
	data, err := os.ReadFile(input.Path)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "read input for lzma-like compression", err)
	}

	level := zstd.SpeedDefault
	if spec.CompressionLevel >= 8 {
		level = zstd.SpeedBestCompression
	} else if spec.CompressionLevel > 0 && spec.CompressionLevel <= 3 {
		level = zstd.SpeedFastest
	}

	payload, err := zstdCompress(data, level)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "compress with zstd", err)
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "write compressed output", err)
	}

	return Outcome{ToolName: toolName, ArtifactPath: outPath, ByteSize: int64(len(payload))}, nil
}

func zstdCompress(data []byte, level zstd.EncoderLevel) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flateCompress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressAdaptive reverses RunInProcess's framed output, used by
// tests exercising the round-trip property and by a future unpack CLI
// verb.
func decompressAdaptive(framed []byte) ([]byte, error) {
	originalSize, payload, err := unframeAdaptive(framed)
	if err != nil {
		return nil, err
	}

	// Try zstd first, then flate: the frame doesn't record which
	// delegate was used, so the reader attempts both decoders.
	if out, zerr := zstdDecompress(payload); zerr == nil {
		return out[:min(len(out), originalSize)], nil
	}
	out, ferr := flateDecompress(payload)
	if ferr != nil {
		return nil, ferr
	}
	return out[:min(len(out), originalSize)], nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func flateDecompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
