package recording

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caseprep/interview-live/internal/model/session"
)

type capturedObject struct {
	key         string
	contentType string
	body        []byte
}

type memoryUploader struct {
	objects []capturedObject
}

func (u *memoryUploader) Upload(objectKey, contentType string, body []byte) error {
	u.objects = append(u.objects, capturedObject{objectKey, contentType, body})
	return nil
}

func testSession() *session.Session {
	return &session.Session{
		ConnID:   "conn-1",
		ThreadID: "abcdefgh-1234-5678",
		Recording: session.RecordingMeta{
			ThreadID: "abcdefgh-1234-5678",
			ConnID:   "conn-1",
		},
	}
}

func TestFlushUploadsAudioAndMetadata(t *testing.T) {
	uploader := &memoryUploader{}

	Flush(uploader, testSession(), []byte("wav-bytes"))

	if len(uploader.objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(uploader.objects))
	}

	audio := uploader.objects[0]
	if audio.key != "abcdefgh_conn-1.wav" || audio.contentType != "audio/wav" {
		t.Fatalf("unexpected audio object %q %q", audio.key, audio.contentType)
	}
	if string(audio.body) != "wav-bytes" {
		t.Fatalf("unexpected audio body %q", audio.body)
	}

	meta := uploader.objects[1]
	if meta.key != "abcdefgh_conn-1.json" || meta.contentType != "application/json" {
		t.Fatalf("unexpected metadata object %q %q", meta.key, meta.contentType)
	}

	var parsed session.RecordingMeta
	if err := json.Unmarshal(meta.body, &parsed); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if parsed.RecordingID != "abcdefgh_conn-1" {
		t.Fatalf("recording id missing from metadata, got %q", parsed.RecordingID)
	}
}

func TestFlushSkipsEmptyCapture(t *testing.T) {
	uploader := &memoryUploader{}

	Flush(uploader, testSession(), nil)
	Flush(uploader, nil, []byte("orphan"))

	if len(uploader.objects) != 0 {
		t.Fatalf("expected no uploads, got %d", len(uploader.objects))
	}
}

func TestObjectStorageUpload(t *testing.T) {
	var gotPath, gotAuth, gotUpsert string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage := NewObjectStorage(server.URL, "service-key", "recordings")
	if err := storage.Upload("rec-1.wav", "audio/wav", []byte("audio")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if gotPath != "/storage/v1/object/recordings/rec-1.wav" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotUpsert != "true" {
		t.Fatalf("expected x-upsert true, got %q", gotUpsert)
	}
	if !strings.Contains(string(gotBody), "audio") {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestObjectStorageUploadFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	storage := NewObjectStorage(server.URL, "k", "b")
	if err := storage.Upload("x.wav", "audio/wav", []byte("a")); err == nil {
		t.Fatal("expected an error for a rejected upload")
	}
}
