package models

// Recommendation is a single hit in a recommendation response.
type Recommendation struct {
	ItemView
	Rank int `json:"rank"`
}

// RecommendResponse is the response for a recommendation request.
// Results are ordered most similar first; the query item itself may appear.
type RecommendResponse struct {
	Query     string           `json:"query"`
	K         int              `json:"k"`
	Results   []Recommendation `json:"results"`
	QueryTime int64            `json:"query_time_ms"`
}

// TitleSuggestion is a catalog title proposed when a lookup misses.
type TitleSuggestion struct {
	ID    ItemID  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// NewRecommendResponse builds a response from hydrated items in rank order.
func NewRecommendResponse(query string, k int, items []Item, queryTimeMs int64) *RecommendResponse {
	resp := &RecommendResponse{
		Query:     query,
		K:         k,
		Results:   make([]Recommendation, 0, len(items)),
		QueryTime: queryTimeMs,
	}
	for i := range items {
		resp.Results = append(resp.Results, Recommendation{ItemView: items[i].View(), Rank: i + 1})
	}
	return resp
}
