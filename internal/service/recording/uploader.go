// Package recording flushes captured interview audio and its metadata packet
// to object storage when a connection closes.
package recording

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/caseprep/interview-live/internal/model/session"
)

// Uploader is the object-storage boundary for recording flushes.
type Uploader interface {
	Upload(objectKey, contentType string, body []byte) error
}

// Discard drops recordings, used when no storage backend is configured.
type Discard struct{}

// Upload ignores the object.
func (Discard) Upload(string, string, []byte) error { return nil }

// ObjectStorage uploads via a Supabase-style storage HTTP API.
type ObjectStorage struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
}

// NewObjectStorage builds the storage client.
func NewObjectStorage(baseURL, serviceKey, bucket string) *ObjectStorage {
	return &ObjectStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload stores one object, overwriting any previous version.
func (s *ObjectStorage) Upload(objectKey, contentType string, body []byte) error {
	if s.baseURL == "" || s.serviceKey == "" {
		return fmt.Errorf("object storage not configured")
	}

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectKey)
	req, err := http.NewRequest(http.MethodPost, uploadURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	return nil
}

// Flush uploads the WAV capture and its metadata packet for a finished
// session. Best effort: failures are logged, never surfaced to the
// disconnecting client.
func Flush(uploader Uploader, sess *session.Session, audio []byte) {
	if sess == nil || len(audio) == 0 {
		return
	}

	recordingID := recordingID(sess)
	sess.Recording.RecordingID = recordingID

	if err := uploader.Upload(recordingID+".wav", "audio/wav", audio); err != nil {
		log.Printf("[recording] audio flush failed id=%s: %v", recordingID, err)
		return
	}

	meta, err := json.Marshal(sess.Recording)
	if err != nil {
		log.Printf("[recording] metadata marshal failed id=%s: %v", recordingID, err)
		return
	}
	if err := uploader.Upload(recordingID+".json", "application/json", meta); err != nil {
		log.Printf("[recording] metadata flush failed id=%s: %v", recordingID, err)
		return
	}

	log.Printf("[recording] flushed id=%s bytes=%d", recordingID, len(audio))
}

func recordingID(sess *session.Session) string {
	prefix := sess.ThreadID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "_" + sess.ConnID
}
