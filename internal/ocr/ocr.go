// Package ocr turns screenshot images into plain text.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Reader extracts the text shown in an encoded image.
type Reader interface {
	Text(ctx context.Context, image []byte) (string, error)
}

// ErrEmptyImage is returned for a zero-length image.
var ErrEmptyImage = errors.New("ocr: empty image")

// DefaultTimeout bounds a single recognition when none is configured.
const DefaultTimeout = 30 * time.Second

// Tesseract runs the tesseract binary, feeding the image on stdin and
// reading the recognised text from stdout.
type Tesseract struct {
	Binary   string
	Language string // optional, passed as -l
	Timeout  time.Duration
}

var _ Reader = (*Tesseract)(nil)

// NewTesseract returns a Tesseract reader. An empty binary means "tesseract"
// on PATH; a non-positive timeout falls back to DefaultTimeout.
func NewTesseract(binary string, timeout time.Duration) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tesseract{Binary: binary, Timeout: timeout}
}

// Text implements Reader.
func (t *Tesseract) Text(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"stdin", "stdout"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	cmd := exec.CommandContext(ctx, t.Binary, args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ocr: %s timed out after %s: %w", t.Binary, timeout, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("ocr: %s exited %d: %s", t.Binary, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("ocr: running %s: %w", t.Binary, err)
	}
	return stdout.String(), nil
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, image []byte) (string, error)

// Text implements Reader.
func (f ReaderFunc) Text(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
