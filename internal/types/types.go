package types

// ChatRequest is the body of POST /chat/message on the remote service.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatReply is what the remote assistant answers for one turn.
type ChatReply struct {
	Response   string   `json:"response"`
	AgentUsed  string   `json:"agent_used"`
	Decision   string   `json:"decision"`
	Confidence float64  `json:"confidence"`
	SessionID  string   `json:"session_id"`
	ToolsUsed  []string `json:"tools_used"`
}

type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type KnowledgeBaseEntry struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

type KnowledgeBaseCreate struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

// KnowledgeBaseUpdate carries only the fields being changed.
type KnowledgeBaseUpdate struct {
	Question *string  `json:"question,omitempty"`
	Answer   *string  `json:"answer,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Category *string  `json:"category,omitempty"`
}

// RemoteError is the error convention of the remote service.
type RemoteError struct {
	Detail string `json:"detail"`
}

// ErrorResponse is what this service writes on its own failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
