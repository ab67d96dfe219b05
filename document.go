package vmix

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// DocumentVersion is the major.minor version written into documents.
const DocumentVersion = "1.0"

var documentVersion = semver.MustParse(DocumentVersion)

// DocumentHeader summarizes a document without decoding the sources.
type DocumentHeader struct {
	Version string    `json:"version"`
	ID      string    `json:"id"`
	Sources int       `json:"sources"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Date    time.Time `json:"date"`
}

// SnapshotRecord is a persisted snapshot.
type SnapshotRecord struct {
	ID    uint64       `json:"id"`
	Label string       `json:"label"`
	Time  time.Time    `json:"time"`
	State SessionState `json:"state"`
}

// Document is the persisted form of a session: its state, its snapshots
// and a small PNG thumbnail.
type Document struct {
	Header    DocumentHeader   `json:"header"`
	Session   SessionState     `json:"session"`
	Snapshots []SnapshotRecord `json:"snapshots,omitempty"`
	Thumbnail string           `json:"thumbnail,omitempty"`
}

// NewDocument captures s and its snapshots.
func NewDocument(s *Session) *Document {
	st := s.State()
	d := newDocument(st.Clone())
	for _, info := range s.actions.Snapshots() {
		snap, _ := s.actions.snapshotState(info.ID)
		d.Snapshots = append(d.Snapshots, SnapshotRecord{ID: info.ID, Label: info.Label, Time: info.Time, State: snap})
	}
	return d
}

func newDocument(st SessionState) *Document {
	return &Document{
		Header: DocumentHeader{
			Version: DocumentVersion,
			ID:      uuid.NewString(),
			Sources: len(st.Sources),
			Width:   st.Width,
			Height:  st.Height,
			Date:    time.Now().UTC(),
		},
		Session: st,
	}
}

// SetThumbnail embeds img as a base64 PNG.
func (d *Document) SetThumbnail(img image.Image) error {
	if img == nil {
		d.Thumbnail = ""
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("vmix: encode thumbnail: %w", err)
	}
	d.Thumbnail = base64.StdEncoding.EncodeToString(buf.Bytes())
	return nil
}

// ThumbnailImage decodes the embedded thumbnail. It returns nil without
// error when the document has none.
func (d *Document) ThumbnailImage() (image.Image, error) {
	if d.Thumbnail == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(d.Thumbnail)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail: %w", ErrInvalidDocument, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail: %w", ErrInvalidDocument, err)
	}
	return img, nil
}

// Marshal encodes the document. Media paths under dir are written relative
// to it; an empty dir keeps them as they are.
func (d *Document) Marshal(dir string) ([]byte, error) {
	out := *d
	out.Session = d.Session.Clone()
	out.Snapshots = make([]SnapshotRecord, len(d.Snapshots))
	for i, r := range d.Snapshots {
		out.Snapshots[i] = SnapshotRecord{ID: r.ID, Label: r.Label, Time: r.Time, State: r.State.Clone()}
	}
	out.rewritePaths(func(p string) string { return relativePath(dir, p) })
	return json.MarshalIndent(&out, "", "  ")
}

// ParseDocument decodes data. Relative media paths are resolved against
// dir. A document from another major version is returned together with an
// error wrapping ErrVersionMismatch; callers may keep going.
func ParseDocument(data []byte, dir string) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if d.Header.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidDocument)
	}
	d.rewritePaths(func(p string) string { return absolutePath(dir, p) })

	v, err := semver.NewVersion(d.Header.Version)
	if err != nil {
		return &d, fmt.Errorf("%w: %q", ErrVersionMismatch, d.Header.Version)
	}
	if v.Major() != documentVersion.Major() {
		return &d, fmt.Errorf("%w: %s, expected %s", ErrVersionMismatch, v, DocumentVersion)
	}
	return &d, nil
}

// Build creates a session from the document, keeping the recorded source
// ids. Records that cannot be built are skipped and reported in the
// returned error together with the session.
func (d *Document) Build(cfg SessionConfig) (*Session, error) {
	if d.Session.Width > 0 && d.Session.Height > 0 {
		cfg.Width, cfg.Height = d.Session.Width, d.Session.Height
	}
	s := NewSession(cfg)
	st := d.Session.Clone()
	err := s.applyState(&st)
	for _, r := range d.Snapshots {
		s.actions.addSnapshot(r.ID, r.Label, r.Time, r.State.Clone())
	}
	return s, err
}

// Import adds the document's sources to s with fresh ids and unique
// names. Clone origins, follow links and mixing groups are remapped to the
// new ids; references outside the document are dropped.
func (d *Document) Import(s *Session) ([]*Source, error) {
	ids := make(map[uint64]uint64, len(d.Session.Sources))
	for _, rec := range d.Session.Sources {
		ids[rec.ID] = NewID()
	}

	var (
		added []*Source
		errs  []error
	)
	for _, clones := range []bool{false, true} {
		for _, rec := range d.Session.Sources {
			if (rec.Producer.Kind == KindClone) != clones {
				continue
			}
			rec.Follow = ids[rec.Follow]
			if clones {
				origin, ok := ids[rec.Producer.Origin]
				if !ok || s.Find(origin) == nil {
					Logger().Warn("skipping clone without origin", "source", rec.Name)
					continue
				}
				rec.Producer.Origin = origin
			}
			p, err := newProducer(rec.Producer, s)
			if err != nil {
				errs = append(errs, fmt.Errorf("source %q: %w", rec.Name, err))
				continue
			}
			src := newSourceWithID(ids[rec.ID], rec.Name, p)
			if err := src.applyState(&rec); err != nil {
				errs = append(errs, fmt.Errorf("source %q: %w", rec.Name, err))
			}
			added = append(added, s.Add(src))
		}
	}
	for _, group := range d.Session.Groups {
		var members []*Source
		for _, id := range group {
			if src := s.Find(ids[id]); src != nil {
				members = append(members, src)
			}
		}
		if len(members) > 1 {
			s.Link(members...)
		}
	}
	return added, errors.Join(errs...)
}

// rewritePaths applies fn to every media path of the document, nested
// sessions and snapshots included.
func (d *Document) rewritePaths(fn func(string) string) {
	rewriteStatePaths(&d.Session, fn)
	for i := range d.Snapshots {
		rewriteStatePaths(&d.Snapshots[i].State, fn)
	}
}

func rewriteStatePaths(st *SessionState, fn func(string) string) {
	for i := range st.Sources {
		p := &st.Sources[i].Producer
		if p.Path != "" {
			p.Path = fn(p.Path)
		}
		for j := range p.Paths {
			p.Paths[j] = fn(p.Paths[j])
		}
		if rest, ok := strings.CutPrefix(p.URI, "file://"); ok {
			p.URI = "file://" + fn(rest)
		}
		if p.Session != nil {
			rewriteStatePaths(p.Session, fn)
		}
	}
}

func relativePath(dir, p string) string {
	if dir == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

func absolutePath(dir, p string) string {
	p = filepath.FromSlash(p)
	if dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
