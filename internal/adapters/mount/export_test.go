package mount

// SetAfterRead installs a hook that runs between reading a channel pointer
// and caching it.
func (s *Source) SetAfterRead(fn func()) {
	s.afterRead = fn
}
