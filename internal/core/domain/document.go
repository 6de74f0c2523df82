package domain

import "time"

// Document is an ingested file. Its ID is derived from the raw bytes,
// so re-ingesting identical content always resolves to the same document.
type Document struct {
	// ID is the content-derived identifier.
	ID string

	// Title is the supplied title or the chunker's heuristic title.
	Title string

	// Description is optional free text supplied at upload.
	Description string

	// FileName is the original upload name.
	FileName string

	// Size is the raw byte size.
	Size int64

	// TotalCharacters and TotalWords count the extracted page text.
	TotalCharacters int
	TotalWords      int

	// UploadedAt is when the document was first stored.
	UploadedAt time.Time

	// Processed is set once every chunk vector has been written.
	// An unprocessed document is resumed on the next ingestion or reconcile.
	Processed bool

	// Chunks are in insertion order.
	Chunks []Chunk
}

// Chunk is a passage of one page of one document.
type Chunk struct {
	// ID is the vector point identifier, stable for (DocumentID, Position).
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// PageNumber is the 1-based source page.
	PageNumber int

	// Position is the insertion index within the document.
	Position int

	// Content is the chunk text.
	Content string

	// TokenCount is an approximate model token count.
	TokenCount int
}

// Page is the extracted text of one page.
type Page struct {
	Number int
	Text   string
}

// PageFragment is one chunk of text produced from a page.
type PageFragment struct {
	PageNumber int
	Content    string
}

// ChunkingResult is the chunker output for a whole document.
type ChunkingResult struct {
	Title           string
	TotalCharacters int
	TotalWords      int
	Fragments       []PageFragment
}

// Upload is a file handed to ingestion.
type Upload struct {
	FileName    string
	Title       string
	Description string
	Data        []byte
}

// DocumentSummary is a listing row for a stored document.
type DocumentSummary struct {
	ID         string
	Title      string
	FileName   string
	Size       int64
	ChunkCount int
	Processed  bool
	UploadedAt time.Time
}
