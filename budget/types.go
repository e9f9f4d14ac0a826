package budget

// Role tags one side of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one ordered, role-tagged unit of conversation history.
// Ordering is significant: the most recent user turn is the active request
// and is never dropped by enforcement.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Extra carries host-specific fields the engine preserves but never
	// interprets (attachment refs, message IDs, provider annotations).
	Extra map[string]any `json:"-"`
}

// Category names one of the prompt content buckets competing for the
// context ceiling.
type Category string

const (
	CategorySystem      Category = "system"
	CategoryTools       Category = "tools"
	CategoryMemory      Category = "memory"
	CategoryMessages    Category = "messages"
	CategoryToolResults Category = "tool_results"
)
