package storage

import "time"

// TokenUsage tracks token consumption for an LLM call
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's counts into this one
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// UsageEntry records the token accounting of one model turn
type UsageEntry struct {
	ID        string     `json:"id"`
	Model     string     `json:"model"`
	Timestamp time.Time  `json:"timestamp"`
	Usage     TokenUsage `json:"usage"`
}

// UsageLog aggregates token consumption across runs
type UsageLog struct {
	Total   TokenUsage   `json:"total"`
	Entries []UsageEntry `json:"entries,omitempty"`
}

// Preferences stores user preferences for this project
type Preferences struct {
	AutoLoadContext   bool     `json:"auto_load_context"`
	PreferredModel    string   `json:"preferred_model,omitempty"`
	ExcludeDirs       []string `json:"exclude_dirs,omitempty"`
	CustomPromptRules []string `json:"custom_prompt_rules,omitempty"`
}

// DefaultPreferences returns sensible default preferences
func DefaultPreferences() *Preferences {
	return &Preferences{
		AutoLoadContext: true,
	}
}
