package session

import "github.com/stormforge/stormforge/core"

// ConfigValue resolves key against the session's config map, raising
// RequiredConfigMissing (carrying s.ID) when no default is supplied and
// nothing matches, per spec §4.1.
func (s *Session) ConfigValue(key core.Key, def ...interface{}) (interface{}, error) {
	return core.Lookup(s.Config, key, s.ID, def...)
}

// SetConfig returns a copy of s with value installed at key in Config.
func (s *Session) SetConfig(key core.Key, value interface{}) *Session {
	out := s.clone()
	out.Config = core.Set(s.Config, key, value)
	return out
}

// UpdateConfig returns a copy of s with fn applied to the current value at
// key in Config (nil if absent).
func (s *Session) UpdateConfig(key core.Key, fn func(interface{}) interface{}) *Session {
	out := s.clone()
	out.Config = core.Update(s.Config, key, fn)
	return out
}

// Assign resolves key against the session's scratch space (Assigned),
// spec §3's "user scratch space; read-only between actions except via
// explicit update primitives".
func (s *Session) Assign(key core.Key, def ...interface{}) (interface{}, error) {
	return core.Lookup(s.Assigned, key, s.ID, def...)
}

// UpdateAssign returns a copy of s with fn applied to the current value at
// key in Assigned.
func (s *Session) UpdateAssign(key core.Key, fn func(interface{}) interface{}) *Session {
	out := s.clone()
	out.Assigned = core.Update(s.Assigned, key, fn)
	return out
}

// SetAssign returns a copy of s with value installed at key in Assigned.
func (s *Session) SetAssign(key core.Key, value interface{}) *Session {
	out := s.clone()
	out.Assigned = core.Set(s.Assigned, key, value)
	return out
}

// DeleteAssign returns a copy of s with key removed from Assigned.
func (s *Session) DeleteAssign(key core.Key) *Session {
	out := s.clone()
	out.Assigned = core.Delete(s.Assigned, key)
	return out
}

// WithConfig deep-merges extra on top of the session's current Config,
// used when entering a nested scenario or sequence step (spec §4.3).
func (s *Session) WithConfig(extra core.Config) *Session {
	out := s.clone()
	out.Config = core.DeepMerge(s.Config, extra)
	return out
}
