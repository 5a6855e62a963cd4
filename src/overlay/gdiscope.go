package overlay

// gdiScope collects release functions for handles acquired during one
// present and runs them in reverse order.
type gdiScope struct {
	releases []func()
}

func (s *gdiScope) add(release func()) {
	s.releases = append(s.releases, release)
}

// Release runs every registered release, newest first. It is safe to call
// more than once.
func (s *gdiScope) Release() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
}
