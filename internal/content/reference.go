package content

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Reference identifies a content record: a positive ID, an optional work
// (version) ID and an optional provider name. Its string form is
// "ID[_WorkID][_Provider]", e.g. "42", "42_7", "42_7_catalog" or "42__catalog".
type Reference struct {
	ID       int
	WorkID   int
	Provider string
}

// EmptyReference is the zero reference. It never resolves.
var EmptyReference = Reference{}

// IsEmpty reports whether r is the zero reference.
func (r Reference) IsEmpty() bool {
	return r.ID <= 0
}

// String renders r in its canonical parseable form.
func (r Reference) String() string {
	if r.IsEmpty() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(r.ID))
	if r.WorkID > 0 || r.Provider != "" {
		sb.WriteByte('_')
		if r.WorkID > 0 {
			sb.WriteString(strconv.Itoa(r.WorkID))
		}
	}
	if r.Provider != "" {
		sb.WriteByte('_')
		sb.WriteString(r.Provider)
	}
	return sb.String()
}

// WithoutVersion returns r with the work ID cleared.
func (r Reference) WithoutVersion() Reference {
	r.WorkID = 0
	return r
}

// ParseReference parses the string form produced by String.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmptyReference, fmt.Errorf("empty content reference")
	}

	parts := strings.SplitN(s, "_", 3)
	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		return EmptyReference, fmt.Errorf("invalid content reference %q: id must be a positive integer", s)
	}
	ref := Reference{ID: id}

	if len(parts) > 1 && parts[1] != "" {
		work, err := strconv.Atoi(parts[1])
		if err != nil || work < 0 {
			return EmptyReference, fmt.Errorf("invalid content reference %q: bad work id", s)
		}
		ref.WorkID = work
	}
	if len(parts) > 2 {
		if parts[2] == "" {
			return EmptyReference, fmt.Errorf("invalid content reference %q: empty provider", s)
		}
		ref.Provider = parts[2]
	}
	return ref, nil
}

// TryParseReference is ParseReference without the error.
func TryParseReference(s string) (Reference, bool) {
	ref, err := ParseReference(s)
	return ref, err == nil
}

// URI returns the canonical content URI for ref, e.g. "contentdata:///42_7".
func URI(ref Reference) string {
	return "contentdata:///" + ref.String()
}

// guidNamespace seeds deterministic record GUIDs.
var guidNamespace = uuid.MustParse("3f1b6c4e-9a52-4d0e-8f0b-6a2d9c1e7b55")

// GUIDFor derives a stable GUID for a reference, ignoring its version.
func GUIDFor(ref Reference) uuid.UUID {
	return uuid.NewSHA1(guidNamespace, []byte(ref.WithoutVersion().String()))
}
