package vmix

import (
	"bytes"
	"fmt"
)

// Copy encodes sources as clipboard text. Clones whose origin is not part
// of the selection are dropped when pasted.
func Copy(sources ...*Source) ([]byte, error) {
	var st SessionState
	for _, src := range sources {
		if src != nil {
			st.Sources = append(st.Sources, src.State())
		}
	}
	if s := sessionOf(sources); s != nil {
		st.Width, st.Height = s.Resolution()
	}
	return newDocument(st.Clone()).Marshal("")
}

func sessionOf(sources []*Source) *Session {
	for _, src := range sources {
		if src != nil && src.session != nil {
			return src.session
		}
	}
	return nil
}

// IsClipboard reports whether text looks like copied sources.
func IsClipboard(text []byte) bool {
	text = bytes.TrimSpace(text)
	return bytes.HasPrefix(text, []byte("{")) && bytes.Contains(text, []byte(`"header"`))
}

// Paste adds the sources encoded in text to s with fresh ids.
func Paste(s *Session, text []byte) ([]*Source, error) {
	d, err := ParseDocument(text, "")
	if d == nil {
		return nil, err
	}
	if err != nil {
		Logger().Warn("pasting from another version", "error", err)
	}
	return d.Import(s)
}

// PasteProcessing copies the image processing of the first source in text
// to target.
func PasteProcessing(text []byte, target *Source) error {
	d, err := ParseDocument(text, "")
	if d == nil {
		return err
	}
	if err != nil {
		Logger().Warn("pasting from another version", "error", err)
	}
	if len(d.Session.Sources) == 0 {
		return fmt.Errorf("%w: no source", ErrInvalidDocument)
	}
	rec := d.Session.Sources[0]
	target.SetProcessingEnabled(rec.ProcessingEnabled)
	target.SetProcessing(rec.Processing)
	return nil
}
