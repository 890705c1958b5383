package termmap

// TermMap maps source language terms to target language terms.
type TermMap map[string]string

// MatchResult holds terms that matched against input texts.
type MatchResult struct {
	Matched TermMap
}

// Keys returns the source terms of the map.
func (tm TermMap) Keys() []string {
	keys := make([]string, 0, len(tm))
	for k := range tm {
		keys = append(keys, k)
	}
	return keys
}
