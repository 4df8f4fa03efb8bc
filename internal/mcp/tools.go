package mcp

// SearchInput defines the input schema for the theo_search tool.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"the search query, in Korean, English, or German"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	Source  string   `json:"source,omitempty" jsonschema:"filter by source substring, e.g. KD or TRE"`
	DocType string   `json:"doc_type,omitempty" jsonschema:"filter by document type: dogmatics, dictionary, commentary, general"`
	Tags    []string `json:"tags,omitempty" jsonschema:"filter by tag substrings (OR logic)"`
}

// SearchOutput defines the output schema for the theo_search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"list of search results"`
}

// SearchResultOutput is a single search result with its provenance.
type SearchResultOutput struct {
	Content string  `json:"content" jsonschema:"matched chunk text"`
	Source  string  `json:"source" jsonschema:"source document abbreviation"`
	Author  string  `json:"author,omitempty" jsonschema:"document author"`
	DocType string  `json:"doc_type,omitempty" jsonschema:"document type"`
	Page    *int    `json:"page,omitempty" jsonschema:"print page number, when known"`
	Lemma   string  `json:"lemma,omitempty" jsonschema:"dictionary headword the chunk belongs to"`
	Score   float64 `json:"score" jsonschema:"relevance score"`
	Method  string  `json:"method" jsonschema:"retrieval method: vector, json, or hybrid"`
}

// LemmaLookupInput defines the input schema for the lemma_lookup tool.
type LemmaLookupInput struct {
	Lemma    string `json:"lemma" jsonschema:"the dictionary headword to look up"`
	Source   string `json:"source,omitempty" jsonschema:"filter by source substring"`
	Category string `json:"category,omitempty" jsonschema:"filter by category"`
}

// LemmaLookupOutput defines the output schema for the lemma_lookup tool.
type LemmaLookupOutput struct {
	Lemma   string             `json:"lemma" jsonschema:"normalized lemma that was looked up"`
	Found   bool               `json:"found" jsonschema:"whether the lemma is indexed"`
	Entries []LemmaEntryOutput `json:"entries,omitempty" jsonschema:"archive locations of this lemma"`
}

// LemmaEntryOutput is one archive location of a lemma.
type LemmaEntryOutput struct {
	File     string   `json:"file" jsonschema:"archive file holding the entry"`
	Source   string   `json:"source,omitempty" jsonschema:"source document abbreviation"`
	Volume   *int     `json:"volume,omitempty" jsonschema:"volume number, when the source is multi-volume"`
	Page     *int     `json:"page,omitempty" jsonschema:"print page number, when known"`
	Category []string `json:"category,omitempty" jsonschema:"theological categories"`
	Related  []string `json:"related,omitempty" jsonschema:"related lemmas"`
}

// IndexStatusInput is the (empty) input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	ChunkCount   int           `json:"chunk_count" jsonschema:"number of chunks in the vector store"`
	SourceCount  int           `json:"source_count" jsonschema:"number of distinct source documents"`
	Sources      []string      `json:"sources,omitempty" jsonschema:"indexed source abbreviations"`
	ArchiveFiles int           `json:"archive_files" jsonschema:"number of archived document envelopes"`
	Embeddings   EmbeddingInfo `json:"embeddings" jsonschema:"embedder capability state"`
}

// EmbeddingInfo reports the embedder runtime state. AI clients use this to
// adjust their strategy: the static fallback ranks by surface features only,
// so lexical filters matter more when it is active.
type EmbeddingInfo struct {
	Model            string `json:"model" jsonschema:"active embedding model name"`
	Dimensions       int    `json:"dimensions" jsonschema:"embedding vector width"`
	Status           string `json:"status" jsonschema:"ready or unavailable"`
	IsFallbackActive bool   `json:"is_fallback_active" jsonschema:"true when the offline static embedder is active"`
	SemanticQuality  string `json:"semantic_quality" jsonschema:"high, low, or none"`
}
