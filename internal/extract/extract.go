// Package extract converts uploaded files and remote-video URLs into plain
// text. The strategy is selected by declared filename extension only, never
// by content sniffing.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrUnsupportedType is returned for extensions outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrPayloadTooLarge is returned before extraction when the upload
	// exceeds the configured size limit.
	ErrPayloadTooLarge = errors.New("file too large")
	// ErrExtractionFailed marks input-attributable extraction failures
	// (corrupt or unreadable documents).
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrSourceUnavailable is returned when a remote video cannot be
	// reached or has been removed.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoTextExtracted is raised by callers when extraction succeeds but
	// yields empty or whitespace-only text.
	ErrNoTextExtracted = errors.New("no text extracted")
)

// Kind enumerates the supported extraction strategies.
type Kind int

const (
	KindAudio Kind = iota
	KindPDF
	KindWord
	KindSlides
	KindImage
)

// kindByExt is the extension allow-list. Adding a format is one entry here
// plus a handler registration in NewDispatcher.
var kindByExt = map[string]Kind{
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".m4a":  KindAudio,
	".pdf":  KindPDF,
	".docx": KindWord,
	".doc":  KindWord,
	".pptx": KindSlides,
	".ppt":  KindSlides,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
}

type handlerFunc func(ctx context.Context, filename string, data []byte) (string, error)

// Dispatcher routes a file to the extraction strategy for its extension.
type Dispatcher struct {
	client   *openai.Client
	model    string
	maxBytes int64
	handlers map[Kind]handlerFunc
}

// NewDispatcher builds a Dispatcher. client is used for audio transcription
// and image OCR; model is the vision-capable completion model.
func NewDispatcher(client *openai.Client, model string, maxBytes int64) *Dispatcher {
	d := &Dispatcher{
		client:   client,
		model:    model,
		maxBytes: maxBytes,
	}
	d.handlers = map[Kind]handlerFunc{
		KindAudio: d.transcribe,
		KindPDF: func(ctx context.Context, filename string, data []byte) (string, error) {
			return extractPDF(data)
		},
		KindWord: func(ctx context.Context, filename string, data []byte) (string, error) {
			return extractWord(data)
		},
		KindSlides: func(ctx context.Context, filename string, data []byte) (string, error) {
			return extractSlides(data)
		},
		KindImage: d.ocrImage,
	}
	return d
}

// KindFor resolves a filename to its extraction kind, case-insensitively.
func KindFor(filename string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := kindByExt[ext]
	return kind, ok
}

// Allowed reports whether the filename's extension is on the allow-list.
func (d *Dispatcher) Allowed(filename string) bool {
	_, ok := KindFor(filename)
	return ok
}

// ExtractFile runs the strategy for the file's declared extension. The size
// and allow-list checks run before any extraction is attempted.
func (d *Dispatcher) ExtractFile(ctx context.Context, filename string, data []byte) (string, error) {
	kind, ok := KindFor(filename)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
	if int64(len(data)) > d.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	return d.handlers[kind](ctx, filename, data)
}
