package entity

// LLMRequest is a single call to the generative text capability.
type LLMRequest struct {
	System      string
	Messages    []Message
	Temperature float32
	// Grounding is the retrieved context already rendered into System.
	// Providers that take documents separately may use it directly.
	Grounding string
}

// TokenStream is a forward-only sequence of answer fragments.
// Recv returns io.EOF after the last fragment. Close releases the
// underlying call and cancels it if it is still running.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}
