package model

// Options configures the behaviour of the Builder. Options are constructed by
// the public adapter in pkg/model and passed into New.
type Options struct {
	Labeler func(string) string
	// OmitDocumentation drops element annotations from the model.
	OmitDocumentation bool
}

func defaultOptions() Options {
	return Options{
		Labeler: DefaultLabeler,
	}
}
