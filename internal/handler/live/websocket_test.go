package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/caseprep/interview-live/internal/model/chat"
	"github.com/caseprep/interview-live/internal/provider"
	"github.com/caseprep/interview-live/internal/script"
	"github.com/caseprep/interview-live/internal/service/dialogue"
	"github.com/caseprep/interview-live/internal/service/recording"
	"github.com/caseprep/interview-live/internal/service/registry"
	ttsService "github.com/caseprep/interview-live/internal/service/tts"
	"github.com/caseprep/interview-live/internal/store"
)

type scriptedAdapter struct {
	deltas []string
}

func (a *scriptedAdapter) Name() string { return "ark" }

func (a *scriptedAdapter) Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[string], error) {
	reader, writer := schema.Pipe[string](len(a.deltas))
	go func() {
		defer writer.Close()
		for _, delta := range a.deltas {
			if writer.Send(delta, nil) {
				return
			}
		}
	}()
	return reader, nil
}

func newTestServer(t *testing.T, adapter provider.Adapter, turns store.TurnStore) (*httptest.Server, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	resolver := script.NewResolver(script.NewMemoryStore(script.Seed()))
	orch := dialogue.New(resolver, provider.NewSelector(adapter, nil), ttsService.Discard{}, turns)
	handler := New(reg, orch, resolver, nil, nil, recording.Discard{})

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, reg
}

func dialLive(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/live?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v (resp=%v)", err, resp)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) outgoingMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg outgoingMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return msg
}

func TestConnectRejectsMissingToken(t *testing.T) {
	server, _ := newTestServer(t, &scriptedAdapter{}, store.NewMemoryStore())

	resp, err := http.Get(server.URL + "/live")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestConnectRejectsMalformedToken(t *testing.T) {
	server, _ := newTestServer(t, &scriptedAdapter{}, store.NewMemoryStore())

	resp, err := http.Get(server.URL + "/live?token=not-a-uuid")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestConnectSendsConnectedEnvelope(t *testing.T) {
	server, reg := newTestServer(t, &scriptedAdapter{}, store.NewMemoryStore())
	token := uuid.NewString()

	conn := dialLive(t, server, token)

	msg := readEnvelope(t, conn)
	if msg.Type != "connected" {
		t.Fatalf("expected connected envelope, got %q", msg.Type)
	}
	if msg.ThreadID != token {
		t.Fatalf("expected thread id %q, got %q", token, msg.ThreadID)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one registered connection, got %d", reg.Len())
	}
}

func TestChatTurnStreamsProgress(t *testing.T) {
	adapter := &scriptedAdapter{deltas: []string{"Hello there", ". Tell me about the case."}}
	turns := store.NewMemoryStore()
	server, _ := newTestServer(t, adapter, turns)
	token := uuid.NewString()

	conn := dialLive(t, server, token)
	readEnvelope(t, conn) // connected

	payload, _ := json.Marshal(map[string]any{
		"type": "chat",
		"data": chat.TurnRequest{
			Messages: map[int]chat.Message{
				0: {Role: chat.RoleUser, Content: "Hi, I'm ready."},
			},
			Phase: 0,
		},
	})
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	var records []chat.ProgressRecord
	for {
		msg := readEnvelope(t, conn)
		if msg.Type != "chat.progress" {
			t.Fatalf("expected chat.progress, got %q", msg.Type)
		}

		raw, _ := json.Marshal(msg.Data)
		var record chat.ProgressRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			t.Fatalf("decode record: %v", err)
		}
		records = append(records, record)
		if record.Last {
			break
		}
	}

	if len(records) < 2 {
		t.Fatalf("expected at least 2 records, got %d", len(records))
	}
	if !records[0].First {
		t.Fatal("first record must carry First")
	}
	final := records[len(records)-1]
	want := "Hello there. Tell me about the case."
	if final.Response != want {
		t.Fatalf("unexpected final response %q", final.Response)
	}

	// Persistence completes shortly after the terminal record.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(turns.Transcript(token)) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 persisted turns, got %d", len(turns.Transcript(token)))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatRejectsMalformedTurn(t *testing.T) {
	server, _ := newTestServer(t, &scriptedAdapter{}, store.NewMemoryStore())

	conn := dialLive(t, server, uuid.NewString())
	readEnvelope(t, conn) // connected

	payload, _ := json.Marshal(map[string]any{
		"type": "chat",
		"data": chat.TurnRequest{
			Messages: map[int]chat.Message{
				0: {Role: chat.RoleAssistant, Content: "I speak last"},
			},
		},
	})
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	msg := readEnvelope(t, conn)
	if msg.Type != "chat.error" {
		t.Fatalf("expected chat.error, got %q", msg.Type)
	}
}

func TestUnsupportedMessageType(t *testing.T) {
	server, _ := newTestServer(t, &scriptedAdapter{}, store.NewMemoryStore())

	conn := dialLive(t, server, uuid.NewString())
	readEnvelope(t, conn) // connected

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readEnvelope(t, conn)
	if msg.Type != "error" {
		t.Fatalf("expected error envelope, got %q", msg.Type)
	}
}

func TestDisconnectClearsRegistry(t *testing.T) {
	server, reg := newTestServer(t, &scriptedAdapter{}, store.NewMemoryStore())

	conn := dialLive(t, server, uuid.NewString())
	readEnvelope(t, conn) // connected
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for reg.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds %d connections after disconnect", reg.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDeriveMessageID(t *testing.T) {
	if got := deriveMessageID("abcdefgh-1234", "1700"); got != "abcdefgh#1700" {
		t.Fatalf("unexpected message id %q", got)
	}
	if got := deriveMessageID("short", "1700"); got != "short#1700" {
		t.Fatalf("unexpected message id %q", got)
	}
}
