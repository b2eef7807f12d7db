// Package stt links a live connection to streaming speech-to-text. Transcript
// fragments flow outward through a callback; the dialogue pipeline never
// blocks on transcription.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// Fragment is one transcription increment with its finality flags and timing.
type Fragment struct {
	Text        string
	IsFinal     bool
	SpeechFinal bool
	Start       float64
	Duration    float64
}

// Config carries the live transcription settings.
type Config struct {
	APIKey   string
	Model    string
	Language string
}

// LiveTranscriber dials streaming transcription sessions.
type LiveTranscriber struct {
	cfg Config
}

// NewLiveTranscriber builds a transcriber, filling in model defaults.
func NewLiveTranscriber(cfg Config) *LiveTranscriber {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	return &LiveTranscriber{cfg: cfg}
}

type resultMessage struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
}

// LiveStream is one open transcription session. Send pushes raw audio;
// fragments arrive on the callback passed to Start. done closes when the
// reader goroutine has exited, so Stop can guarantee no callback is still
// in flight.
type LiveStream struct {
	conn *websocket.Conn
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// Start opens the streaming session and begins relaying fragments to
// onFragment. The callback runs on the reader goroutine; it must not block.
func (t *LiveTranscriber) Start(ctx context.Context, onFragment func(Fragment)) (*LiveStream, error) {
	if t.cfg.APIKey == "" {
		return nil, fmt.Errorf("deepgram api key missing")
	}

	params := url.Values{}
	params.Set("model", t.cfg.Model)
	params.Set("language", t.cfg.Language)
	params.Set("interim_results", "true")
	params.Set("smart_format", "true")
	params.Set("endpointing", "600")
	params.Set("utterance_end_ms", "1000")
	params.Set("filler_words", "true")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	headers := map[string][]string{"Authorization": {"Token " + t.cfg.APIKey}}

	conn, resp, err := dialer.DialContext(ctx, deepgramListenURL+"?"+params.Encode(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram dial failed status=%d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("deepgram dial failed: %w", err)
	}

	stream := &LiveStream{conn: conn, done: make(chan struct{})}
	go stream.readLoop(onFragment)
	return stream, nil
}

func (s *LiveStream) readLoop(onFragment func(Fragment)) {
	defer close(s.done)
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[stt] read error: %v", err)
			}
			return
		}

		var result resultMessage
		if err := json.Unmarshal(payload, &result); err != nil {
			continue
		}
		if result.Type != "Results" || len(result.Channel.Alternatives) == 0 {
			continue
		}

		text := result.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}

		onFragment(Fragment{
			Text:        text,
			IsFinal:     result.IsFinal,
			SpeechFinal: result.SpeechFinal,
			Start:       result.Start,
			Duration:    result.Duration,
		})
	}
}

// Send pushes one raw audio packet upstream.
func (s *LiveStream) Send(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("transcription stream closed")
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// KeepAlive nudges the upstream session so it survives client silence.
func (s *LiveStream) KeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("transcription stream closed")
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`))
}

// Stop ends the session and waits for the reader goroutine to exit, so no
// fragment callback runs once Stop has returned. Idempotent; also safe
// against a stream that already ended on its own.
func (s *LiveStream) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		log.Printf("[stt] reader did not exit before teardown deadline")
	}
}

func (s *LiveStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
