package session

// Cancel sets the session's cancellation reason. Once set, run_action
// (action package) short-circuits every subsequent action: "cancellation
// (nil or a string reason; once set, all further actions are no-ops)"
// (spec §3), and is the cooperative half of spec §5's two orthogonal
// cancellation mechanisms.
func (s *Session) Cancel(reason string) *Session {
	if s.IsCancelled() {
		return s
	}
	out := s.clone()
	r := reason
	out.Cancellation = &r
	return out
}

// IsCancelled reports whether Cancel has been called.
func (s *Session) IsCancelled() bool {
	return s.Cancellation != nil
}

// CancellationReason returns the reason string, or "" if not cancelled.
func (s *Session) CancellationReason() string {
	if s.Cancellation == nil {
		return ""
	}
	return *s.Cancellation
}
