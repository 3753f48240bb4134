// Package attr implements the OpenEXR attribute codec: every standard
// attribute type's on-disk encoding, plus the name/type/size preamble
// that wraps each attribute in a header.
//
// Grounded on jpeg2000/codestream's marker-segment parsing (a
// marker/length preamble followed by a typed payload) and on
// codec.Registry's dispatch-by-key pattern, narrowed here to dispatch
// on an attribute's type name instead of a codec UID.
package attr

import (
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
)

// MaxNameShort is the attribute/channel name length limit when the
// long-name flag (bit 10 of the version field) is clear.
const MaxNameShort = 31

// MaxNameLong is the limit when the long-name flag is set.
const MaxNameLong = 255

// Value is the interface every concrete attribute type implements.
// Unknown attribute types are preserved as Unknown so forward
// compatibility is never broken by a round-trip.
type Value interface {
	// TypeName is the on-disk type string, e.g. "box2i", "chlist".
	TypeName() string
	// ByteSize is the encoded payload size for this value. It must
	// match what WriteTo actually emits; mismatches are a write-time
	// bug, not a caller input to validate.
	ByteSize() int
	// WriteTo serializes the payload (not the name/type/size preamble).
	WriteTo(w *bitio.Writer, section string) error
}

// Attribute is one named, typed header entry.
type Attribute struct {
	Name  string
	Value Value
}

// readText reads a NUL-terminated string up to maxLen bytes (not
// counting the terminator). maxLen enforces the short/long name limit
// depending on the long-name version flag.
func readText(r *bitio.Reader, section string, maxLen int) (string, error) {
	buf := make([]byte, 0, 32)
	for {
		b, err := r.ReadU8(section)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		if len(buf) >= maxLen {
			return "", exrerrors.Invalidf(section, "name exceeds %d bytes without NUL terminator", maxLen)
		}
		buf = append(buf, b)
	}
}

func writeText(w *bitio.Writer, section, s string, maxLen int) error {
	if len(s) > maxLen {
		return exrerrors.Invalidf(section, "name %q exceeds %d bytes", s, maxLen)
	}
	if err := w.WriteBytes(section, []byte(s)); err != nil {
		return err
	}
	return w.WriteU8(section, 0)
}

// ReadHeader reads a sequence of attributes terminated by an empty
// name (an attribute with a zero-length name marks the end of the
// sequence), returning them in file order. maxNameLen selects the
// short/long name limit for this file.
func ReadHeader(r *bitio.Reader, section string, maxNameLen int) ([]Attribute, error) {
	var attrs []Attribute
	seen := map[string]bool{}
	for {
		name, err := readText(r, section, maxNameLen)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return attrs, nil
		}
		if seen[name] {
			return nil, exrerrors.Invalidf(section, "duplicate attribute %q", name)
		}
		seen[name] = true

		typeName, err := readText(r, section, MaxNameLong)
		if err != nil {
			return nil, err
		}
		size, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, exrerrors.Invalidf(section, "attribute %q has negative size %d", name, size)
		}
		val, err := decode(r, section, typeName, int(size))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{Name: name, Value: val})
	}
}

// WriteHeader writes attrs followed by the empty-name sentinel.
func WriteHeader(w *bitio.Writer, section string, attrs []Attribute, maxNameLen int) error {
	for _, a := range attrs {
		if err := writeText(w, section, a.Name, maxNameLen); err != nil {
			return err
		}
		if err := writeText(w, section, a.Value.TypeName(), MaxNameLong); err != nil {
			return err
		}
		if err := w.WriteI32(section, int32(a.Value.ByteSize())); err != nil {
			return err
		}
		if err := a.Value.WriteTo(w, section); err != nil {
			return err
		}
	}
	return w.WriteU8(section, 0)
}

// Find looks up an attribute by name.
func Find(attrs []Attribute, name string) (Value, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}
