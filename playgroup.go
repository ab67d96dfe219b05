package vmix

import "slices"

// PlayGroup is a named set of sources started and paused together.
type PlayGroup struct {
	Name    string   `json:"name"`
	Members []uint64 `json:"members"`
}

// Note is a text annotation shown in the Mixing view.
type Note struct {
	ID   uint64 `json:"id"`
	Text string `json:"text"`
	Pos  Vec2   `json:"pos"`
}

// SetPlayGroup creates or replaces the play group name.
func (s *Session) SetPlayGroup(name string, sources ...*Source) {
	ids := make([]uint64, 0, len(sources))
	for _, src := range sources {
		if src != nil && !slices.Contains(ids, src.id) {
			ids = append(ids, src.id)
		}
	}
	for i := range s.playGroups {
		if s.playGroups[i].Name == name {
			s.playGroups[i].Members = ids
			return
		}
	}
	s.playGroups = append(s.playGroups, PlayGroup{Name: name, Members: ids})
}

// PlayGroups returns a copy of the play groups.
func (s *Session) PlayGroups() []PlayGroup {
	out := make([]PlayGroup, len(s.playGroups))
	for i, pg := range s.playGroups {
		out[i] = PlayGroup{Name: pg.Name, Members: slices.Clone(pg.Members)}
	}
	return out
}

// RemovePlayGroup deletes the play group name.
func (s *Session) RemovePlayGroup(name string) bool {
	i := slices.IndexFunc(s.playGroups, func(pg PlayGroup) bool { return pg.Name == name })
	if i < 0 {
		return false
	}
	s.playGroups = slices.Delete(s.playGroups, i, i+1)
	return true
}

func (s *Session) playGroupMembers(name string) []*Source {
	for _, pg := range s.playGroups {
		if pg.Name != name {
			continue
		}
		var out []*Source
		for _, id := range pg.Members {
			if src := s.Find(id); src != nil {
				out = append(out, src)
			}
		}
		return out
	}
	return nil
}

// PlayGroupPlay starts or pauses every member of the play group name.
func (s *Session) PlayGroupPlay(name string, on bool) {
	for _, src := range s.playGroupMembers(name) {
		src.Play(on)
	}
}

// TogglePlayGroup pauses every member when any is playing, and starts them
// all otherwise.
func (s *Session) TogglePlayGroup(name string) {
	members := s.playGroupMembers(name)
	playing := slices.ContainsFunc(members, (*Source).Playing)
	for _, src := range members {
		src.Play(!playing)
	}
}

func (s *Session) forgetPlayMember(id uint64) {
	for i := range s.playGroups {
		s.playGroups[i].Members = slices.DeleteFunc(s.playGroups[i].Members, func(m uint64) bool { return m == id })
	}
}

// AddNote adds a note and returns its id.
func (s *Session) AddNote(text string, pos Vec2) uint64 {
	n := Note{ID: NewID(), Text: text, Pos: pos}
	s.notes = append(s.notes, n)
	return n.ID
}

// Notes returns a copy of the notes.
func (s *Session) Notes() []Note { return slices.Clone(s.notes) }

// RemoveNote deletes the note with the given id.
func (s *Session) RemoveNote(id uint64) bool {
	n := len(s.notes)
	s.notes = slices.DeleteFunc(s.notes, func(note Note) bool { return note.ID == id })
	return len(s.notes) != n
}
