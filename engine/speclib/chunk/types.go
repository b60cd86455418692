package chunk

const (
	// StrategyProtected splits on section, paragraph and sentence boundaries
	// without ever cutting a protected span.
	StrategyProtected = "protected"
	// StrategyRecursive delegates to the langchaingo recursive character splitter.
	StrategyRecursive = "recursive"
)

// Settings configures chunking behavior.
type Settings struct {
	Strategy     string
	TargetSize   int
	OverlapRatio float64
	// ProtectedPatterns are added to the defaults unless ReplaceDefaultPatterns is set.
	ProtectedPatterns      []string
	ReplaceDefaultPatterns bool
}

// Chunk is a contiguous slice of a document ready for embedding.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Hash       string    `json:"hash"`
	References []string  `json:"references,omitempty"`
	Oversized  bool      `json:"oversized,omitempty"`
	Embedding  []float32 `json:"-"`
}
