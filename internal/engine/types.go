package engine

// MaxNewTokens is the upper bound on generated tokens per chat turn.
const MaxNewTokens = 80

// GenerateOptions are the sampling parameters for a single generation call.
type GenerateOptions struct {
	MaxNewTokens      int
	Temperature       float64
	RepetitionPenalty float64
	TopK              int
	TopP              float64
}

// DefaultGenerateOptions returns the sampling parameters the chat widget uses.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxNewTokens:      MaxNewTokens,
		Temperature:       0.7,
		RepetitionPenalty: 1.2,
		TopK:              50,
		TopP:              0.95,
	}
}

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
