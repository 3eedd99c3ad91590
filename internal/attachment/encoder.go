// Package attachment appends binary media payloads to index documents.
//
// The payload is emitted as a base64 string inside a single-element array,
// the envelope the search backend's attachment ingest expects. Text
// extraction is the backend's job; this package only ships the bytes.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
	"github.com/Aman-CERP/contentsearch/internal/indexdoc"
)

// Index field names written by the encoder and targeted by queries.
const (
	ContentField     = "attachment-content"
	ContentTypeField = "attachment-content-type"
)

// Inspector decides which media items have their binary indexed.
type Inspector interface {
	AllowIndexing(ctx context.Context, media content.Media) bool
}

// InspectorFunc adapts a function to Inspector.
type InspectorFunc func(ctx context.Context, media content.Media) bool

// AllowIndexing implements Inspector.
func (f InspectorFunc) AllowIndexing(ctx context.Context, media content.Media) bool {
	return f(ctx, media)
}

// Encoder writes the attachment fragment of an index document.
type Encoder struct {
	inspector Inspector
	withType  bool
	maxSize   int64
	logger    *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithContentTypeField also writes the media MIME type.
func WithContentTypeField() Option {
	return func(e *Encoder) {
		e.withType = true
	}
}

// WithMaxSize rejects payloads larger than n bytes. Zero means unlimited.
func WithMaxSize(n int64) Option {
	return func(e *Encoder) {
		e.maxSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEncoder returns an Encoder gated by inspector. A nil inspector is a
// configuration defect and fails construction.
func NewEncoder(inspector Inspector, opts ...Option) (*Encoder, error) {
	if inspector == nil {
		return nil, cserrors.CapabilityMissing("attachment.Encoder", "inspection policy")
	}
	e := &Encoder{
		inspector: inspector,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Encode appends the attachment field to w when item is media and the
// inspector approves it. Otherwise nothing is written. The payload is read
// completely before the first byte is written, so a read failure leaves w
// untouched.
func (e *Encoder) Encode(ctx context.Context, item content.Item, w *indexdoc.Writer) error {
	media, ok := item.(content.Media)
	if !ok {
		return nil
	}
	if !e.inspector.AllowIndexing(ctx, media) {
		e.logger.Debug("attachment_skipped",
			slog.String("content_link", media.ContentLink().String()),
			slog.String("mime", media.MimeType()))
		return nil
	}

	data, err := e.read(ctx, media)
	if err != nil {
		return err
	}

	if err := w.RawField(ContentField, func(out io.Writer) error {
		return writeEnvelope(out, data)
	}); err != nil {
		return fmt.Errorf("write %s: %w", ContentField, err)
	}
	if e.withType {
		if err := w.Field(ContentTypeField, media.MimeType()); err != nil {
			return fmt.Errorf("write %s: %w", ContentTypeField, err)
		}
	}
	return nil
}

func (e *Encoder) read(ctx context.Context, media content.Media) ([]byte, error) {
	ref := media.ContentLink().String()

	rc, err := media.Open(ctx)
	if err != nil {
		return nil, cserrors.New(cserrors.ErrCodeAttachmentRead, "open attachment "+ref, err).
			WithDetail("reference", ref)
	}
	defer rc.Close()

	var r io.Reader = rc
	if e.maxSize > 0 {
		r = io.LimitReader(rc, e.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cserrors.New(cserrors.ErrCodeAttachmentRead, "read attachment "+ref, err).
			WithDetail("reference", ref)
	}
	if e.maxSize > 0 && int64(len(data)) > e.maxSize {
		return nil, cserrors.New(cserrors.ErrCodeFileTooLarge,
			fmt.Sprintf("attachment %s exceeds %d bytes", ref, e.maxSize), nil).
			WithDetail("reference", ref)
	}
	return data, nil
}

// writeEnvelope writes ["<base64>"]. Base64 output needs no JSON escaping.
func writeEnvelope(out io.Writer, data []byte) error {
	var buf bytes.Buffer
	buf.Grow(base64.StdEncoding.EncodedLen(len(data)) + 4)
	buf.WriteString(`["`)
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := enc.Write(data); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	buf.WriteString(`"]`)
	_, err := out.Write(buf.Bytes())
	return err
}
