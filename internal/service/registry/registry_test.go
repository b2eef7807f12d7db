package registry

import (
	"context"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	sess := reg.Register("conn-1", "user-1", "thread-1", "agent-1")

	if sess.ThreadID != "thread-1" {
		t.Fatalf("unexpected thread id %q", sess.ThreadID)
	}
	if sess.Recording.ConnID != "conn-1" {
		t.Fatalf("recording metadata missing conn id, got %q", sess.Recording.ConnID)
	}

	got, ok := reg.Lookup("conn-1")
	if !ok || got != sess {
		t.Fatal("lookup should return the registered session")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 connection, got %d", reg.Len())
	}
}

func TestStartTurnCancelsPreviousTurn(t *testing.T) {
	reg := New()
	reg.Register("conn-1", "u", "t", "a")

	firstCtx, firstCancel := context.WithCancel(context.Background())
	token1, ok := reg.StartTurn("conn-1", firstCancel)
	if !ok {
		t.Fatal("first StartTurn should succeed")
	}

	_, secondCancel := context.WithCancel(context.Background())
	token2, ok := reg.StartTurn("conn-1", secondCancel)
	if !ok {
		t.Fatal("second StartTurn should succeed")
	}
	if token1 == token2 {
		t.Fatal("turn tokens must differ")
	}

	select {
	case <-firstCtx.Done():
	default:
		t.Fatal("starting a new turn must cancel the previous one")
	}
}

func TestFinishTurnIgnoresStaleToken(t *testing.T) {
	reg := New()
	reg.Register("conn-1", "u", "t", "a")

	_, firstCancel := context.WithCancel(context.Background())
	token1, _ := reg.StartTurn("conn-1", firstCancel)

	secondCtx, secondCancel := context.WithCancel(context.Background())
	token2, _ := reg.StartTurn("conn-1", secondCancel)

	// The replaced turn finishing late must not clear the live one.
	reg.FinishTurn("conn-1", token1)

	_, audio, ok := reg.CancelAndClear("conn-1")
	if !ok {
		t.Fatal("expected the connection to still exist")
	}
	if len(audio) != 0 {
		t.Fatalf("expected no buffered audio, got %d bytes", len(audio))
	}

	select {
	case <-secondCtx.Done():
	default:
		t.Fatal("teardown must cancel the live turn")
	}
	_ = token2
}

func TestStartTurnOnUnknownConnection(t *testing.T) {
	reg := New()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, ok := reg.StartTurn("missing", cancel); ok {
		t.Fatal("StartTurn must fail for an unregistered connection")
	}
}

func TestAppendAudioBuffersAndStamps(t *testing.T) {
	reg := New()
	reg.Register("conn-1", "u", "t", "a")

	reg.AppendAudio("conn-1", []byte{1, 2, 3})
	reg.AppendAudio("conn-1", []byte{4, 5})

	sess, audio, ok := reg.CancelAndClear("conn-1")
	if !ok {
		t.Fatal("expected the connection to exist")
	}
	if len(audio) != 5 {
		t.Fatalf("expected 5 buffered bytes, got %d", len(audio))
	}
	if !sess.Recording.AudioStarted {
		t.Fatal("audio capture should be marked started")
	}
	if sess.Recording.ConnFinishedAt == 0 {
		t.Fatal("teardown should stamp the finish time")
	}
}

func TestCancelAndClearIsIdempotent(t *testing.T) {
	reg := New()
	reg.Register("conn-1", "u", "t", "a")

	stopped := 0
	reg.AttachSTT("conn-1", func() { stopped++ })

	if _, _, ok := reg.CancelAndClear("conn-1"); !ok {
		t.Fatal("first teardown should find the connection")
	}
	if _, _, ok := reg.CancelAndClear("conn-1"); ok {
		t.Fatal("second teardown should find nothing")
	}
	if stopped != 1 {
		t.Fatalf("transcription teardown ran %d times, expected once", stopped)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}
