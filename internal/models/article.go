package models

// Article is one row of the pre-embedded Wikipedia dataset. The two vector
// columns are produced by the same embedding model and share a dimension.
type Article struct {
	ID            int
	URL           string
	Title         string
	Text          string
	TitleVector   []float32
	ContentVector []float32
	VectorID      int
}

// ScoredArticle is an Article returned from a similarity search together
// with its similarity score (higher is closer).
type ScoredArticle struct {
	Article
	Score float32
}
