// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/pkg/job"
	"github.com/nativeforge/forge/pkg/obfuscate"
)

// ExternalProtectorBackend wraps an installed external obfuscation
// tool. It only ever appears in a candidate set when the registry
// found it on the host, and it always scores in the 90-100 band when
// selected, per the protect-stage scoring rules.
type ExternalProtectorBackend struct{}

func (ExternalProtectorBackend) Name() string { return "external-obfuscator" }

func (ExternalProtectorBackend) Score(spec job.Spec, _ InputInfo) int { return 95 }

func (ExternalProtectorBackend) BuildArgs(spec job.Spec, input InputInfo) []string {
	return []string{"--in-place", "--output", protectedPath(input.Path), input.Path}
}

func (ExternalProtectorBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{protectedPath(input.Path)}
}

func protectedPath(sourcePath string) string {
	return sourcePath + ".protected.py"
}

// SelfObfuscatorBackend always available; applies the four AST
// transforms in pkg/obfuscate to the source file in-process.
type SelfObfuscatorBackend struct {
	// NameSeed/ControlFlowSeed make the probabilistic control-flow pass
	// reproducible in tests; zero means use the package default seed.
	NameSeed        int64
	ControlFlowSeed int64
}

func (SelfObfuscatorBackend) Name() string { return "self-obfuscator" }

func (SelfObfuscatorBackend) Score(job.Spec, InputInfo) int { return 75 }

func (SelfObfuscatorBackend) BuildArgs(job.Spec, InputInfo) []string { return nil }

func (SelfObfuscatorBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{protectedPath(input.Path)}
}

func (b SelfObfuscatorBackend) RunInProcess(spec job.Spec, input InputInfo) (Outcome, *builderrors.BuildError) {
	src, err := os.ReadFile(input.Path)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "read source for self-obfuscation", err)
	}

	out, obfErr := obfuscate.Apply(src, obfuscate.Options{
		Names:           spec.Obfuscation.Names,
		Strings:         spec.Obfuscation.Strings,
		ControlFlow:     spec.Obfuscation.ControlFlow,
		AntiDebug:       spec.Obfuscation.AntiDebug,
		NameSeed:        b.NameSeed,
		ControlFlowSeed: b.ControlFlowSeed,
	})
	if obfErr != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "self-obfuscation pass failed", obfErr)
	}

	outPath := protectedPath(input.Path)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "write obfuscated output", err)
	}

	return Outcome{ToolName: "self-obfuscator", ArtifactPath: outPath, ByteSize: int64(len(out))}, nil
}

// BytecodeEncryptorBackend available only when symmetric-crypto
// primitives are linked (always true here, since golang.org/x/crypto
// is part of the module's dependency set). It encrypts the source with
// AES-GCM using a PBKDF2-SHA256 derived key and emits a runnable loader
// that decrypts at startup.
type BytecodeEncryptorBackend struct {
	Passphrase string
}

const (
	pbkdf2Iterations = 10000
	pbkdf2SaltBytes  = 16
	aesKeyBytes      = 32
)

func (BytecodeEncryptorBackend) Name() string { return "bytecode-encryptor" }

func (BytecodeEncryptorBackend) Score(job.Spec, InputInfo) int { return 80 }

func (BytecodeEncryptorBackend) BuildArgs(job.Spec, InputInfo) []string { return nil }

func (BytecodeEncryptorBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{protectedPath(input.Path)}
}

func (b BytecodeEncryptorBackend) RunInProcess(spec job.Spec, input InputInfo) (Outcome, *builderrors.BuildError) {
	src, err := os.ReadFile(input.Path)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "read source for bytecode encryption", err)
	}

	salt := make([]byte, pbkdf2SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "generate salt", err)
	}
	key := pbkdf2.Key([]byte(b.Passphrase), salt, pbkdf2Iterations, aesKeyBytes, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "init AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "init GCM mode", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "generate nonce", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, src, nil)
	loader := renderLoader(salt, ciphertext)

	outPath := protectedPath(input.Path)
	if err := os.WriteFile(outPath, []byte(loader), 0o644); err != nil {
		return Outcome{}, builderrors.New(builderrors.SubprocessFailure, "write encrypted loader", err)
	}

	return Outcome{ToolName: "bytecode-encryptor", ArtifactPath: outPath, ByteSize: int64(len(loader))}, nil
}

// DefaultProtectBackends returns one instance of every protect-stage
// backend this package implements, ready to hand to scheduler.New.
// passphrase seeds the bytecode encryptor; an empty string still
// produces a working (weakly keyed) loader, since the key is re-derived
// from FORGE_PASSPHRASE at load time regardless.
func DefaultProtectBackends(passphrase string) []Backend {
	return []Backend{
		ExternalProtectorBackend{},
		SelfObfuscatorBackend{},
		BytecodeEncryptorBackend{Passphrase: passphrase},
	}
}

// renderLoader emits a source file whose first bytes decode a
// base64-embedded ciphertext and whose body, at startup, derives the
// same key from the embedded salt and the runtime-supplied passphrase,
// decrypts, and execs the recovered source.
func renderLoader(salt, ciphertext []byte) string {
	return fmt.Sprintf(`# forge bytecode-encryptor loader
import os, sys, base64, hashlib
from cryptography.hazmat.primitives.ciphers.aead import AESGCM

_SALT = base64.b64decode(%q)
_CIPHERTEXT = base64.b64decode(%q)
_ITERATIONS = %d

def _load():
    passphrase = os.environ.get("FORGE_PASSPHRASE", "")
    key = hashlib.pbkdf2_hmac("sha256", passphrase.encode(), _SALT, _ITERATIONS, dklen=%d)
    nonce, ct = _CIPHERTEXT[:12], _CIPHERTEXT[12:]
    source = AESGCM(key).decrypt(nonce, ct, None)
    exec(compile(source, "<forge-protected>", "exec"), {"__name__": "__main__"})

if __name__ == "__main__":
    _load()
`, base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(ciphertext), pbkdf2Iterations, aesKeyBytes)
}
