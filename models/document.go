package models

// Document is one crawled page: its URL, extracted text and page metadata.
type Document struct {
	SourceURL string            `json:"source_url"`
	Text      string            `json:"text"`
	Meta      map[string]string `json:"metadata"`
}

// Chunk is a bounded slice of a Document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID        string            // deterministic per (source, index, text)
	SourceURL string            // URL of the source document
	Index     int               // position within the source document
	Text      string            // chunk body, never empty
	Overlap   int               // characters shared with the previous chunk of the same document
	Meta      map[string]string // copied from the source document
	Vector    []float32         // embedding, set during indexing
}

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of chat history.
type Message struct {
	Role    Role
	Content string
}

// SearchResult is a chunk returned by the vector index with its similarity score.
type SearchResult struct {
	Chunk      Chunk
	Similarity float32
}
