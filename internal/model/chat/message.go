package chat

// Role values used on the wire and in the transcript store.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleHuman     = "human"
)

// Message is one turn entry as supplied by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest carries one dialogue turn from the transport layer. Messages is
// an ordered mapping of turn index to message; the full prior history is sent
// on every turn, so the server stays stateless across calls.
type TurnRequest struct {
	Messages map[int]Message `json:"messages"`
	Phase    int             `json:"currentPhase"`
	AgentID  string          `json:"agentId"`
	ThreadID string          `json:"threadId"`
	Provider string          `json:"provider,omitempty"`
}

// ProgressRecord is one increment of streamed output for a turn. ChunkID stays
// at -1 until the first chunk finalizes; exactly one record per turn has
// Last=true.
type ProgressRecord struct {
	Response     string `json:"response"`
	TTSSessionID string `json:"ttsSessionId"`
	HasNewChunk  bool   `json:"hasNewChunk"`
	ChunkID      int    `json:"chunkId"`
	First        bool   `json:"first"`
	Last         bool   `json:"last"`
}
