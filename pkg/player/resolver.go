package player

// Resolver turns an application-level media identifier into something mpv
// can load (a URL or a path). Integrations with media libraries plug in
// here; the default resolver passes identifiers through untouched.
type Resolver interface {
	Resolve(mediaID string) (string, error)
}

// PassthroughResolver treats every media identifier as already loadable.
type PassthroughResolver struct{}

func (PassthroughResolver) Resolve(mediaID string) (string, error) {
	return mediaID, nil
}
