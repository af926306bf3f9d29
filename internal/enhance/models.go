package enhance

// Model identifies a chat-completion backend. The set is open: any
// identifier the endpoint accepts works, these are the ones offered in
// the picker.
type Model string

const (
	ModelQwQ32B     Model = "Qwen/QwQ-32B"
	ModelDeepSeekV3 Model = "deepseek-ai/DeepSeek-V3"
	ModelQwen25     Model = "Qwen/Qwen2.5-7B-Instruct"
)

// DefaultModel is used when no explicit choice has been made.
const DefaultModel = ModelQwQ32B

// Models returns the selectable models in picker order.
func Models() []Model {
	return []Model{ModelQwQ32B, ModelDeepSeekV3, ModelQwen25}
}

// DisplayName is the human-readable label for the picker.
func (m Model) DisplayName() string {
	switch m {
	case ModelQwQ32B:
		return "QwQ 32B"
	case ModelDeepSeekV3:
		return "DeepSeek V3"
	case ModelQwen25:
		return "Qwen2.5 7B"
	default:
		return string(m)
	}
}
