// Package corpus owns the document and chunk model of the searchable corpus
// and the incremental synchronization of that corpus with the store.
package corpus

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"lexrag/internal/collector"
	"lexrag/internal/text"
)

// Document is a normalized, content-addressed unit of ingested text from one
// source/url pair. Content is transient: it exists to produce the hash and
// the chunks and is not persisted itself.
type Document struct {
	ID          string
	Source      string
	Title       string
	URL         string
	Content     string
	ContentHash string
	RetrievedAt time.Time
	IsActive    bool
	Extra       map[string]string

	// Chunks is populated for work-set documents only, after chunking and
	// embedding.
	Chunks []Chunk
}

// Chunk is one ordered, bounded-length slice of a document's content.
type Chunk struct {
	DocID       string
	Index       int
	Content     string
	ContentHash string
	Embedding   []float32
}

// HashText returns the hex SHA-1 digest used for both identities and content
// hashes.
func HashText(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable identity of a document. It is a pure function
// of (source, url): two runs over the same URL always address the same row.
func DocumentID(source, url string) string {
	return HashText(source + "|" + url)
}

// Normalize converts raw collector output into canonical documents. Raw
// entries with an empty URL, or whose cleaned content is shorter than
// minChars runes, are dropped without error. When several raw documents in
// one run resolve to the same identity, the last one processed wins; earlier
// ones are overwritten in place, not merged.
func Normalize(raws []collector.RawDocument, minChars int) []Document {
	var docs []Document
	index := make(map[string]int)

	for _, raw := range raws {
		if raw.URL == "" {
			continue
		}
		content := text.CleanText(raw.Content)
		if content == "" || utf8.RuneCountInString(content) < minChars {
			continue
		}

		title := raw.Title
		if title == "" {
			title = raw.URL
		}

		doc := Document{
			ID:          DocumentID(raw.Source, raw.URL),
			Source:      raw.Source,
			Title:       title,
			URL:         raw.URL,
			Content:     content,
			ContentHash: HashText(content),
			IsActive:    true,
			Extra:       raw.Extra,
		}

		if i, ok := index[doc.ID]; ok {
			docs[i] = doc
			continue
		}
		index[doc.ID] = len(docs)
		docs = append(docs, doc)
	}
	return docs
}

// BuildChunks computes the ordered chunk set for a document's content.
// Embeddings are attached later by the pipeline.
func BuildChunks(doc *Document, maxChars, overlapChars int) {
	pieces := text.ChunkText(doc.Content, maxChars, overlapChars)
	doc.Chunks = make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		doc.Chunks = append(doc.Chunks, Chunk{
			DocID:       doc.ID,
			Index:       i,
			Content:     p,
			ContentHash: HashText(p),
		})
	}
}
