package docstore

// SearchResult is one nearest-neighbour hit from the vector index.
type SearchResult struct {
	ID        string
	Text      string
	File      string
	Framework string
	Category  string
	Section   string
	Score     float32
}
