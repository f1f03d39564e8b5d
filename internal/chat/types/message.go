package types

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Agent identifies which logical producer in the backend pipeline emitted an
// assistant message. Empty for user/system messages.
type Agent string

const (
	AgentCoordinator Agent = "coordinator"
	AgentPlanner     Agent = "planner"
	AgentResearcher  Agent = "researcher"
	AgentCoder       Agent = "coder"
	AgentReporter    Agent = "reporter"
	AgentPodcast     Agent = "podcast"
)

// IsResearchAgent reports whether the agent's messages belong inside a
// research unit (everything between a plan and its report).
func (a Agent) IsResearchAgent() bool {
	return a == AgentResearcher || a == AgentCoder || a == AgentReporter
}

// FinishReason is the terminal classification of a streamed message.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonInterrupt FinishReason = "interrupt"
	FinishReasonToolCalls FinishReason = "tool_calls"
)

// ToolCall is one tool invocation attached to an assistant message.
// ArgsChunks holds raw argument fragments while the call is still streaming;
// on finish they are concatenated, parsed into Args and discarded.
type ToolCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
	ArgsChunks []string       `json:"args_chunks,omitempty"`
	Result     string         `json:"result,omitempty"`
}

// Option is one feedback choice offered to the user by an interrupt.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Resource is an attachment supplied by the user at send time.
type Resource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Message is the atomic unit of conversation state.
//
// Invariants: ID never changes; IsStreaming transitions strictly true→false;
// Content and the chunk slices only grow; ToolCalls[].Args is populated at
// most once, on finish.
type Message struct {
	ID                     string       `json:"id"`
	ThreadID               string       `json:"thread_id"`
	Role                   Role         `json:"role"`
	Agent                  Agent        `json:"agent,omitempty"`
	Content                string       `json:"content"`
	ContentChunks          []string     `json:"content_chunks,omitempty"`
	ReasoningContent       string       `json:"reasoning_content,omitempty"`
	ReasoningContentChunks []string     `json:"reasoning_content_chunks,omitempty"`
	ToolCalls              []ToolCall   `json:"tool_calls,omitempty"`
	IsStreaming            bool         `json:"is_streaming"`
	FinishReason           FinishReason `json:"finish_reason,omitempty"`
	Options                []Option     `json:"options,omitempty"`
	Resources              []Resource   `json:"resources,omitempty"`
	Error                  string       `json:"error,omitempty"`
}

// Clone returns a deep, independent copy of the message. Callers rely on
// referential inequality to detect change.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.ContentChunks = append([]string(nil), m.ContentChunks...)
	out.ReasoningContentChunks = append([]string(nil), m.ReasoningContentChunks...)
	out.Options = append([]Option(nil), m.Options...)
	out.Resources = append([]Resource(nil), m.Resources...)
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = tc.clone()
		}
	}
	return &out
}

func (tc ToolCall) clone() ToolCall {
	out := tc
	out.ArgsChunks = append([]string(nil), tc.ArgsChunks...)
	if tc.Args != nil {
		out.Args = make(map[string]any, len(tc.Args))
		for k, v := range tc.Args {
			out.Args[k] = v
		}
	}
	return out
}

// FindToolCall returns the tool call with the given id, or nil.
func (m *Message) FindToolCall(id string) *ToolCall {
	for i := range m.ToolCalls {
		if m.ToolCalls[i].ID == id {
			return &m.ToolCalls[i]
		}
	}
	return nil
}
