package stream

import "github.com/daryltucker/chatprobe/internal/model"

// Usage is the usage block shared by buffered responses and stream chunks.
type Usage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
}

// TokenUsage flattens the wire usage block. Missing fields are zero.
func (u *Usage) TokenUsage() model.TokenUsage {
	if u == nil {
		return model.TokenUsage{}
	}
	tu := model.TokenUsage{
		Prompt:     u.PromptTokens,
		Completion: u.CompletionTokens,
	}
	if u.CompletionTokensDetails != nil {
		tu.Reasoning = u.CompletionTokensDetails.ReasoningTokens
	}
	return tu
}

// Chunk is one chat.completion.chunk payload.
type Chunk struct {
	ID      string        `json:"id,omitempty"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChunkChoice is a choice in a stream chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Delta carries the incremental content of a choice.
type Delta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}
