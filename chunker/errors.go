package chunker

import "errors"

var (
	ErrNotExtracted = errors.New("document was not extracted")
	ErrNoContent    = errors.New("document has no content to chunk")
	ErrNoSegments   = errors.New("model returned no chunks")
	ErrEmptySegment = errors.New("model returned a chunk without content")
)
