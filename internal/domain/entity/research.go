package entity

import "time"

// SearchResult is one hit returned by a web search provider
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// PageContent is the cleaned text of an enriched page
type PageContent struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ResearchFindings is what a research run learned, kept for refinement
type ResearchFindings struct {
	TripID      string         `json:"trip_id"`
	Request     string         `json:"request"`
	Queries     []string       `json:"queries"`
	Constraints []string       `json:"constraints"`
	Results     []SearchResult `json:"results"`
	Pages       []PageContent  `json:"pages"`
	CreatedAt   time.Time      `json:"created_at"`
}
