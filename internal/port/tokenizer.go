package port

// Tokenizer estimates token counts for model budget accounting.
// Implementations must be monotonic: counting a superset of some text never
// yields fewer tokens.
type Tokenizer interface {
	CountTokens(text string) int
}
