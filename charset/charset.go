// Package charset guesses the text encoding of subtitle files.
package charset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/playengine/playengine/filesystem"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// sniffLen bounds how much of a file is inspected.
const sniffLen = 64 * 1024

var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrBinary          = errors.New("content is not text")
)

// Result is a detected encoding.
type Result struct {
	// Name is the canonical WHATWG name, as understood by the backend's sub-codepage option.
	Name string
	// Certain is set when the name came from a byte order mark or a valid UTF-8 body.
	Certain bool
}

// Lookup resolves an encoding label such as "latin1" or "cp1251".
func Lookup(label string) (encoding.Encoding, string, error) {
	enc, name := charset.Lookup(strings.TrimSpace(label))
	if enc == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return enc, name, nil
}

// Detect guesses the encoding of content. A byte order mark or valid UTF-8 wins; otherwise
// the fallback label is used if it decodes the content cleanly.
func Detect(content []byte, fallback string) (Result, error) {
	if _, name, certain := charset.DetermineEncoding(content, "text/plain"); certain {
		return Result{Name: name, Certain: true}, nil
	}

	if bytes.IndexByte(content, 0) >= 0 {
		return Result{}, ErrBinary
	}

	if utf8.Valid(content) {
		return Result{Name: "utf-8", Certain: true}, nil
	}

	enc, name, err := Lookup(fallback)
	if err != nil {
		return Result{}, err
	}

	if _, err := Decode(content, enc); err != nil {
		return Result{}, fmt.Errorf("decode as %s: %w", name, err)
	}
	return Result{Name: name}, nil
}

// Decode converts content to UTF-8.
func Decode(content []byte, enc encoding.Encoding) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), content)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DetectFile reads the head of path and detects its encoding. With autodetect off the
// fallback is only validated, never second-guessed.
func DetectFile(path, fallback string, autodetect bool) (Result, error) {
	f, err := filesystem.API().Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, sniffLen))
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}

	if len(head) == 0 {
		return Result{}, fmt.Errorf("%s: %w", path, ErrBinary)
	}

	if !autodetect {
		if bytes.IndexByte(head, 0) >= 0 {
			return Result{}, ErrBinary
		}
		_, name, err := Lookup(fallback)
		if err != nil {
			return Result{}, err
		}
		return Result{Name: name}, nil
	}

	return Detect(trimPartialRune(head), fallback)
}

// trimPartialRune drops a multi-byte sequence cut by the read limit.
func trimPartialRune(b []byte) []byte {
	if len(b) < sniffLen {
		return b
	}
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
