package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/caseprep/interview-live/internal/auth"
	"github.com/caseprep/interview-live/internal/config"
	"github.com/caseprep/interview-live/internal/handler"
	"github.com/caseprep/interview-live/internal/handler/live"
	"github.com/caseprep/interview-live/internal/provider"
	"github.com/caseprep/interview-live/internal/script"
	"github.com/caseprep/interview-live/internal/service/dialogue"
	"github.com/caseprep/interview-live/internal/service/recording"
	"github.com/caseprep/interview-live/internal/service/registry"
	"github.com/caseprep/interview-live/internal/service/stt"
	ttsservice "github.com/caseprep/interview-live/internal/service/tts"
	"github.com/caseprep/interview-live/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	scripts := script.NewMemoryStore(script.Seed())
	resolver := script.NewResolver(scripts)

	// Initialize provider backends
	var primary provider.Adapter
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Fatalf("failed to initialize primary chat model: %v", err)
		}
		primary = provider.NewArk("ark", chatModel)
		log.Println("primary chat backend initialized")
	} else {
		log.Fatalf("primary chat backend not configured: set ARK_API_KEY and ARK_MODEL")
	}

	var secondary provider.Adapter
	if cfg.AI.SecondaryEnabled() {
		secondary = provider.NewAnthropic(provider.AnthropicConfig{
			APIKey:    cfg.AI.SecondaryAPIKey,
			Model:     cfg.AI.SecondaryModel,
			BaseURL:   cfg.AI.SecondaryBaseURL,
			MaxTokens: cfg.AI.SecondaryMaxTokens,
		})
		log.Println("secondary chat backend initialized")
	} else {
		log.Println("secondary chat backend not configured, all turns use the primary")
	}
	selector := provider.NewSelector(primary, secondary)

	// Initialize speech synthesis
	var dispatcher ttsservice.Dispatcher = ttsservice.Discard{}
	if cfg.TTS.Enabled {
		synth, err := ttsservice.NewPolly(ctx, ttsservice.Config{
			Region:   cfg.TTS.Region,
			VoiceID:  cfg.TTS.Voice,
			Engine:   cfg.TTS.Engine,
			CacheDir: cfg.TTS.CacheDir,
		})
		if err != nil {
			log.Printf("warning: speech synthesis unavailable: %v", err)
		} else {
			dispatcher = synth
			log.Println("speech synthesis initialized")
		}
	} else {
		log.Println("speech synthesis disabled by configuration")
	}

	// Initialize transcript persistence
	var turns store.TurnStore
	if cfg.Store.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to initialize transcript store: %v", err)
		}
		defer pg.Close()
		turns = pg
		log.Println("transcript store initialized")
	} else {
		turns = store.NewMemoryStore()
		log.Println("DATABASE_URL not set, transcripts kept in memory")
	}

	// Initialize live transcription
	var transcriber *stt.LiveTranscriber
	if cfg.STT.Enabled() {
		transcriber = stt.NewLiveTranscriber(stt.Config{
			APIKey:   cfg.STT.APIKey,
			Model:    cfg.STT.Model,
			Language: cfg.STT.Language,
		})
		log.Println("live transcription initialized")
	} else {
		log.Println("DEEPGRAM_API_KEY not set, live transcription disabled")
	}

	// Initialize connection validation
	var validator live.TokenValidator
	if cfg.Auth.ValidateURL != "" {
		validator = auth.NewValidator(cfg.Auth.ValidateURL, cfg.Auth.Salt)
		log.Println("connection validation initialized")
	} else {
		log.Println("AUTH_VALIDATE_URL not set, accepting any well-formed thread id")
	}

	// Initialize recording storage
	var uploader recording.Uploader = recording.Discard{}
	if cfg.Recording.Enabled() {
		uploader = recording.NewObjectStorage(cfg.Recording.StorageURL, cfg.Recording.ServiceKey, cfg.Recording.Bucket)
		log.Println("recording storage initialized")
	} else {
		log.Println("recording storage not configured, captures are discarded")
	}

	reg := registry.New()
	orchestrator := dialogue.New(resolver, selector, dispatcher, turns)
	liveHandler := live.New(reg, orchestrator, resolver, transcriber, validator, uploader)

	router := handler.NewRouter(liveHandler, cfg.TTS.CacheDir)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("interview-live backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
