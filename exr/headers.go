package exr

import (
	"fmt"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// readHeaders reads the per-part attribute sequence(s) that follow the
// magic/version pair: a single sequence for a non-multipart file, or
// one sequence per part followed by an extra empty-header terminator
// when the multipart flag is set.
func readHeaders(r *bitio.Reader, section string, vf VersionField) ([]*header.Part, error) {
	maxNameLen := vf.MaxNameLen()

	if !vf.Multipart {
		attrs, err := attr.ReadHeader(r, section, maxNameLen)
		if err != nil {
			return nil, err
		}
		return []*header.Part{header.NewPart(attrs, "part 0")}, nil
	}

	var parts []*header.Part
	for {
		attrs, err := attr.ReadHeader(r, section, maxNameLen)
		if err != nil {
			return nil, err
		}
		if len(attrs) == 0 {
			break
		}
		parts = append(parts, header.NewPart(attrs, fmt.Sprintf("part %d", len(parts))))
	}
	if len(parts) == 0 {
		return nil, exrerrors.Invalidf(section, "multipart file declares zero parts")
	}
	return parts, nil
}

// writeHeaders is readHeaders' inverse.
func writeHeaders(w *bitio.Writer, section string, vf VersionField, parts []*header.Part) error {
	maxNameLen := vf.MaxNameLen()
	for _, p := range parts {
		if err := attr.WriteHeader(w, section, p.Attributes, maxNameLen); err != nil {
			return err
		}
	}
	if vf.Multipart {
		if err := w.WriteU8(section, 0); err != nil {
			return err
		}
	}
	return nil
}
