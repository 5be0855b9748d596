package anthropic

// BuildCachedSystemBlocks wraps a constant system prompt in a single block
// with a 1-hour cache breakpoint. The generation and fact-check instructions
// are identical for every POI in a batch, so all calls after the first read
// the warm cache.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: "1h"},
	}}
}
