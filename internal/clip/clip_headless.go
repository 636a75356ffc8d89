package clip

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless Linux servers, containers, etc.).
// Reads are always empty and writes fail with ErrUnavailable.
type headlessBackend struct{}

// NewHeadless returns the no-op backend.
func NewHeadless() Backend { return &headlessBackend{} }

func (b *headlessBackend) Name() string                { return "headless (no-op)" }
func (b *headlessBackend) Read() (Content, error)      { return Content{}, nil }
func (b *headlessBackend) WriteText(string) error      { return ErrUnavailable }
func (b *headlessBackend) WriteImage([]byte) error     { return ErrUnavailable }
func (b *headlessBackend) WriteHTML(_, _ string) error { return ErrUnavailable }
func (b *headlessBackend) Close()                      {}
