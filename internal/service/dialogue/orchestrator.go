// Package dialogue drives one interview turn: provider stream in, segmented
// chunks and progress records out, transcript persistence at the end.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/caseprep/interview-live/internal/model/chat"
	"github.com/caseprep/interview-live/internal/provider"
	"github.com/caseprep/interview-live/internal/script"
	"github.com/caseprep/interview-live/internal/segment"
	"github.com/caseprep/interview-live/internal/service/tts"
	"github.com/caseprep/interview-live/internal/store"
)

// ErrInvalidTurn reports a malformed turn payload; it is raised before any
// provider call is made.
var ErrInvalidTurn = errors.New("invalid turn payload")

// Turn is one dialogue invocation: the resolved history plus the identities
// needed to key synthesis and persistence. It lives for exactly one run.
type Turn struct {
	TTSSessionID  string
	History       []*schema.Message
	UserContent   string
	UserTimestamp string
	Provider      string
	ThreadID      string
	UserID        string
	AgentID       string
	Phase         int
}

// Orchestrator wires script resolution, provider streaming, segmentation,
// synthesis dispatch and transcript persistence for dialogue turns.
type Orchestrator struct {
	resolver *script.Resolver
	selector *provider.Selector
	tts      tts.Dispatcher
	turns    store.TurnStore
}

// New assembles an orchestrator.
func New(resolver *script.Resolver, selector *provider.Selector, dispatcher tts.Dispatcher, turns store.TurnStore) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		selector: selector,
		tts:      dispatcher,
		turns:    turns,
	}
}

// BuildHistory converts the wire turn map (turn index -> message) into an
// ordered message list and extracts the candidate's latest utterance. The
// last entry must be a user message.
func BuildHistory(messages map[int]chat.Message) ([]*schema.Message, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("empty message history: %w", ErrInvalidTurn)
	}

	keys := make([]int, 0, len(messages))
	for key := range messages {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	history := make([]*schema.Message, 0, len(messages))
	for _, key := range keys {
		msg := messages[key]
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		default:
			return nil, "", fmt.Errorf("unsupported role %q at turn %d: %w", msg.Role, key, ErrInvalidTurn)
		}
	}

	last := messages[keys[len(keys)-1]]
	if last.Role != chat.RoleUser || last.Content == "" {
		return nil, "", fmt.Errorf("turn must end with a user message: %w", ErrInvalidTurn)
	}

	return history, last.Content, nil
}

// Run executes one turn as a single logically-sequential routine. Every
// progress record reaches emit in production order; a provider failure aborts
// the run with no partial persistence and no retry.
func (o *Orchestrator) Run(ctx context.Context, turn Turn, emit func(chat.ProgressRecord)) error {
	messages := append([]*schema.Message{schema.SystemMessage(o.systemPrompt(turn))}, turn.History...)

	adapter := o.selector.Select(turn.Provider)
	stream, err := adapter.Stream(ctx, messages)
	if err != nil {
		return fmt.Errorf("open provider stream: %w", err)
	}
	defer stream.Close()

	seg := segment.New()
	for {
		delta, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return fmt.Errorf("provider stream: %w", recvErr)
		}
		if delta == "" {
			continue
		}

		event := seg.Push(delta)
		o.forward(turn, event, emit)
	}

	final := seg.Flush()
	o.forward(turn, final, emit)

	o.persist(turn, final.Response, adapter.Name())
	return nil
}

// systemPrompt resolves the scripted prompt for the turn's phase, falling back
// to the bare role preamble when the phase has no registered script.
func (o *Orchestrator) systemPrompt(turn Turn) string {
	prompt, err := o.resolver.SystemPrompt(turn.AgentID, turn.Phase)
	if err != nil {
		if errors.Is(err, script.ErrPhaseNotFound) {
			log.Printf("[dialogue] no script for agent=%s phase=%d, using base role", turn.AgentID, turn.Phase)
		} else {
			log.Printf("[dialogue] script resolution failed agent=%s phase=%d: %v", turn.AgentID, turn.Phase, err)
		}
		return script.BaseRole
	}
	return prompt
}

func (o *Orchestrator) forward(turn Turn, event segment.Event, emit func(chat.ProgressRecord)) {
	if event.NewChunk != nil {
		o.tts.Dispatch(event.NewChunk.Text, turn.TTSSessionID, event.NewChunk.Index)
	}

	emit(chat.ProgressRecord{
		Response:     event.Response,
		TTSSessionID: turn.TTSSessionID,
		HasNewChunk:  event.NewChunk != nil,
		ChunkID:      event.ChunkID,
		First:        event.First,
		Last:         event.Last,
	})
}

// persist writes the human turn and the full assistant reply. Persistence
// runs detached from the turn's context so a client disconnect right after
// completion cannot lose a finished transcript.
func (o *Orchestrator) persist(turn Turn, response, providerName string) {
	ctx := context.Background()

	human := store.Turn{
		ThreadID:  turn.ThreadID,
		UserID:    turn.UserID,
		Role:      chat.RoleHuman,
		Content:   turn.UserContent,
		Phase:     turn.Phase,
		Timestamp: turn.UserTimestamp,
	}
	if err := o.turns.PersistTurn(ctx, human); err != nil {
		log.Printf("[dialogue] persist human turn failed thread=%s: %v", turn.ThreadID, err)
	}

	assistant := store.Turn{
		ThreadID:  turn.ThreadID,
		UserID:    turn.UserID,
		Role:      providerName,
		Content:   response,
		Phase:     turn.Phase,
		Timestamp: store.NowMillis(),
	}
	if err := o.turns.PersistTurn(ctx, assistant); err != nil {
		log.Printf("[dialogue] persist assistant turn failed thread=%s: %v", turn.ThreadID, err)
	}
}
