// Package live handles the realtime interview connection: token validation,
// transcription relay, dialogue turns and disconnect teardown.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/caseprep/interview-live/internal/auth"
	"github.com/caseprep/interview-live/internal/model/chat"
	"github.com/caseprep/interview-live/internal/model/session"
	"github.com/caseprep/interview-live/internal/script"
	"github.com/caseprep/interview-live/internal/service/dialogue"
	"github.com/caseprep/interview-live/internal/service/recording"
	"github.com/caseprep/interview-live/internal/service/registry"
	"github.com/caseprep/interview-live/internal/service/stt"
	"github.com/caseprep/interview-live/internal/store"
)

// TokenValidator checks the connection token against the admin authority.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (auth.Identity, error)
}

// Handler owns the live websocket endpoint.
type Handler struct {
	registry     *registry.Registry
	orchestrator *dialogue.Orchestrator
	resolver     *script.Resolver
	transcriber  *stt.LiveTranscriber
	validator    TokenValidator
	uploader     recording.Uploader
	upgrader     websocket.Upgrader
}

// New creates the live handler. Transcriber and validator may be nil: without
// a transcriber audio messages are buffered but not transcribed; without a
// validator any well-formed thread id is accepted (development mode).
func New(reg *registry.Registry, orch *dialogue.Orchestrator, resolver *script.Resolver, transcriber *stt.LiveTranscriber, validator TokenValidator, uploader recording.Uploader) *Handler {
	return &Handler{
		registry:     reg,
		orchestrator: orch,
		resolver:     resolver,
		transcriber:  transcriber,
		validator:    validator,
		uploader:     uploader,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	ThreadID  string      `json:"threadId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// audioMessage carries one captured audio packet; AudioData is base64 on the
// wire, decoded by encoding/json.
type audioMessage struct {
	AudioData []byte `json:"audioData"`
}

// client serializes writes to one websocket connection: progress records, STT
// fragments and pings arrive from different goroutines.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg outgoingMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[live] write failed: %v", err)
	}
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	identity, err := h.validate(r.Context(), token)
	if err != nil {
		log.Printf("[live] rejected token: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	sess := h.registry.Register(connID, identity.UserID, token, identity.AgentID)
	defer h.teardown(connID)

	log.Printf("[live] connected conn=%s thread=%s agent=%s", connID, token, identity.AgentID)

	// Script content is immutable for the session, warm it once here instead
	// of fetching per turn.
	if err := h.resolver.CacheAgent(identity.AgentID); err != nil {
		log.Printf("[live] script warmup failed agent=%s: %v", identity.AgentID, err)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := &client{conn: conn}
	sttStream := h.startTranscription(ctx, cl, sess)

	go h.pingLoop(ctx, cl)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	cl.send(outgoingMessage{
		Type:     "connected",
		ThreadID: token,
		Data:     map[string]any{"agentId": identity.AgentID},
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[live] read error conn=%s: %v", connID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch msg.Type {
		case "audio":
			h.handleAudio(connID, sttStream, cl, msg.Data)
		case "chat":
			h.handleChat(ctx, connID, sess, cl, msg.Data)
		case "keepalive":
			if sttStream != nil {
				if err := sttStream.KeepAlive(); err != nil {
					log.Printf("[live] keepalive failed conn=%s: %v", connID, err)
				}
			}
		default:
			cl.send(outgoingMessage{Type: "error", Data: map[string]string{"message": "unsupported message type: " + msg.Type}})
		}
	}
}

func (h *Handler) validate(ctx context.Context, token string) (auth.Identity, error) {
	if h.validator != nil {
		return h.validator.Validate(ctx, token)
	}
	if _, err := uuid.Parse(token); err != nil {
		return auth.Identity{}, fmt.Errorf("token is not a thread id: %w", auth.ErrInvalidToken)
	}
	return auth.Identity{AgentID: "default", UserID: "0"}, nil
}

// startTranscription opens the live STT link and relays fragments to the
// client, keeping the per-fragment timing log for the recording packet.
func (h *Handler) startTranscription(ctx context.Context, cl *client, sess *session.Session) *stt.LiveStream {
	if h.transcriber == nil {
		return nil
	}

	stream, err := h.transcriber.Start(ctx, func(frag stt.Fragment) {
		stamp := session.FragmentStamp{
			Text:        frag.Text,
			IsFinal:     frag.IsFinal,
			SpeechFinal: frag.SpeechFinal,
			Start:       frag.Start,
			Duration:    frag.Duration,
			Timestamp:   time.Now().UnixMilli(),
		}
		sess.Recording.Fragments = append(sess.Recording.Fragments, stamp)

		cl.send(outgoingMessage{
			Type:     "stt.result",
			ThreadID: sess.ThreadID,
			Data: map[string]any{
				"text":        frag.Text,
				"isFinal":     frag.IsFinal,
				"speechFinal": frag.SpeechFinal,
				"start":       frag.Start,
				"duration":    frag.Duration,
			},
		})
	})
	if err != nil {
		log.Printf("[live] transcription start failed conn=%s: %v", sess.ConnID, err)
		return nil
	}

	h.registry.AttachSTT(sess.ConnID, stream.Stop)
	return stream
}

func (h *Handler) handleAudio(connID string, sttStream *stt.LiveStream, cl *client, raw json.RawMessage) {
	var audio audioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		cl.send(outgoingMessage{Type: "error", Data: map[string]string{"message": "invalid audio payload"}})
		return
	}
	if len(audio.AudioData) == 0 {
		return
	}

	h.registry.AppendAudio(connID, audio.AudioData)

	if sttStream != nil {
		if err := sttStream.Send(audio.AudioData); err != nil {
			log.Printf("[live] audio forward failed conn=%s: %v", connID, err)
		}
	}
}

// handleChat starts one dialogue turn. A turn still running on this
// connection is cancelled first: the newer utterance supersedes it.
func (h *Handler) handleChat(ctx context.Context, connID string, sess *session.Session, cl *client, raw json.RawMessage) {
	var req chat.TurnRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cl.send(outgoingMessage{Type: "chat.error", ThreadID: sess.ThreadID, Data: map[string]string{"message": "invalid chat payload"}})
		return
	}

	history, userContent, err := dialogue.BuildHistory(req.Messages)
	if err != nil {
		cl.send(outgoingMessage{Type: "chat.error", ThreadID: sess.ThreadID, Data: map[string]string{"message": err.Error()}})
		return
	}

	agentID := req.AgentID
	if agentID == "" {
		agentID = sess.AgentID
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = sess.ThreadID
	}

	userTimestamp := store.NowMillis()
	sess.Recording.RecordUserMessage(userTimestamp, deriveMessageID(threadID, userTimestamp))

	turn := dialogue.Turn{
		TTSSessionID:  uuid.NewString(),
		History:       history,
		UserContent:   userContent,
		UserTimestamp: userTimestamp,
		Provider:      req.Provider,
		ThreadID:      threadID,
		UserID:        sess.UserID,
		AgentID:       agentID,
		Phase:         req.Phase,
	}

	turnCtx, cancelTurn := context.WithCancel(ctx)
	token, ok := h.registry.StartTurn(connID, cancelTurn)
	if !ok {
		cancelTurn()
		return
	}

	go func() {
		defer cancelTurn()
		defer h.registry.FinishTurn(connID, token)

		err := h.orchestrator.Run(turnCtx, turn, func(record chat.ProgressRecord) {
			cl.send(outgoingMessage{Type: "chat.progress", ThreadID: threadID, Data: record})
		})
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			log.Printf("[live] turn cancelled conn=%s", connID)
			return
		}

		log.Printf("[live] turn failed conn=%s: %v", connID, err)
		cl.send(outgoingMessage{
			Type:     "chat.error",
			ThreadID: threadID,
			Data:     map[string]string{"message": "response generation failed"},
		})
	}()
}

// teardown cancels whatever the connection still runs and flushes the
// recording. Running it twice is harmless.
func (h *Handler) teardown(connID string) {
	sess, audio, ok := h.registry.CancelAndClear(connID)
	if !ok {
		return
	}
	log.Printf("[live] disconnected conn=%s thread=%s", connID, sess.ThreadID)
	recording.Flush(h.uploader, sess, audio)
}

func (h *Handler) pingLoop(ctx context.Context, cl *client) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		}
	}
}

func deriveMessageID(threadID, timestamp string) string {
	prefix := threadID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "#" + timestamp
}
