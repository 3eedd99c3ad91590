package attachment

import (
	"context"
	"mime"
	"strings"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

// DefaultMIMETypes are indexed by MIMEPolicy when no list is configured.
var DefaultMIMETypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/rtf",
	"text/*",
}

// MIMEPolicy approves media whose MIME type matches an allow-list.
// Entries ending in "/*" match a whole top-level type.
type MIMEPolicy struct {
	exact  map[string]struct{}
	prefix []string
}

// NewMIMEPolicy builds a policy from types. An empty list uses DefaultMIMETypes.
func NewMIMEPolicy(types []string) *MIMEPolicy {
	if len(types) == 0 {
		types = DefaultMIMETypes
	}
	p := &MIMEPolicy{exact: make(map[string]struct{}, len(types))}
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if major, ok := strings.CutSuffix(t, "/*"); ok {
			p.prefix = append(p.prefix, major+"/")
			continue
		}
		p.exact[t] = struct{}{}
	}
	return p
}

// AllowIndexing implements Inspector.
func (p *MIMEPolicy) AllowIndexing(_ context.Context, media content.Media) bool {
	mt, _, err := mime.ParseMediaType(media.MimeType())
	if err != nil {
		return false
	}
	if _, ok := p.exact[mt]; ok {
		return true
	}
	for _, pre := range p.prefix {
		if strings.HasPrefix(mt, pre) {
			return true
		}
	}
	return false
}
