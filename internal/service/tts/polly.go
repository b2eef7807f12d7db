// Package tts dispatches finalized reply chunks to speech synthesis. Dispatch
// is one-way: completion is observed only through artifact retrieval, never
// signalled back into the dialogue pipeline.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

// Dispatcher accepts a chunk for synthesis, keyed by synthesis-session id and
// chunk index. Implementations must not block the caller on synthesis.
type Dispatcher interface {
	Dispatch(text, sessionID string, chunkIndex int)
}

// Discard ignores synthesis requests, used when no TTS backend is configured.
type Discard struct{}

// Dispatch drops the chunk.
func (Discard) Dispatch(string, string, int) {}

// ArtifactPath locates the audio artifact for one chunk of a synthesis session.
func ArtifactPath(dir, sessionID string, chunkIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.mp3", sessionID, chunkIndex))
}

// Config carries the Polly synthesizer settings.
type Config struct {
	Region   string
	VoiceID  string
	Engine   string
	CacheDir string
	Timeout  time.Duration
}

// PollySynthesizer renders chunks to mp3 artifacts in the cache directory,
// where the artifact endpoint serves them by (session id, chunk index).
type PollySynthesizer struct {
	client   *polly.Client
	voiceID  pollytypes.VoiceId
	engine   pollytypes.Engine
	cacheDir string
	timeout  time.Duration
}

// NewPolly builds the synthesizer and makes sure the cache directory exists.
func NewPolly(ctx context.Context, cfg Config) (*PollySynthesizer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tts cache dir: %w", err)
	}

	engine := pollytypes.EngineNeural
	if cfg.Engine == string(pollytypes.EngineStandard) {
		engine = pollytypes.EngineStandard
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PollySynthesizer{
		client:   polly.NewFromConfig(awsCfg),
		voiceID:  pollytypes.VoiceId(cfg.VoiceID),
		engine:   engine,
		cacheDir: cfg.CacheDir,
		timeout:  timeout,
	}, nil
}

// Dispatch hands the chunk to a background synthesis call. The call runs on
// its own deadline, detached from the turn: chunks already dispatched when a
// turn is cancelled are allowed to finish.
func (p *PollySynthesizer) Dispatch(text, sessionID string, chunkIndex int) {
	go func() {
		if err := p.synthesize(text, sessionID, chunkIndex); err != nil {
			log.Printf("[tts] synthesis failed session=%s chunk=%d: %v", sessionID, chunkIndex, err)
		}
	}()
}

func (p *PollySynthesizer) synthesize(text, sessionID string, chunkIndex int) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	output, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       p.engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      p.voiceID,
	})
	if err != nil {
		return classifyPollyError(err)
	}
	if output == nil || output.AudioStream == nil {
		return errors.New("polly returned empty audio stream")
	}
	defer output.AudioStream.Close()

	path := ArtifactPath(p.cacheDir, sessionID, chunkIndex)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, output.AudioStream); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	log.Printf("[tts] artifact ready session=%s chunk=%d", sessionID, chunkIndex)
	return nil
}

func classifyPollyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("polly %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("polly synthesize: %w", err)
}
