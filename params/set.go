package params

import "log/slog"

// Set bundles the server parameters with the known player types.
type Set struct {
	Server Server
	types  map[int]*PlayerType
	def    *PlayerType
}

// NewSet initializes every type against sp. Type 0 is always present.
func NewSet(sp Server, types ...PlayerType) *Set {
	s := &Set{Server: sp, types: make(map[int]*PlayerType, len(types)+1)}
	def := DefaultPlayerType(&s.Server)
	s.def = &def
	s.types[0] = s.def
	for i := range types {
		t := types[i]
		t.Init(&s.Server)
		s.types[t.ID] = &t
		if t.ID == 0 {
			s.def = &t
		}
	}
	return s
}

// Default is the standard server with only the default player type.
func Default() *Set {
	return NewSet(DefaultServer())
}

// Type returns the player type with the given id, or the default type
// when id is unknown.
func (s *Set) Type(id int) *PlayerType {
	if t, ok := s.types[id]; ok {
		return t
	}
	slog.Warn("unknown player type, using default", "type", id)
	return s.def
}

// DefaultType is the type-0 player.
func (s *Set) DefaultType() *PlayerType { return s.def }
