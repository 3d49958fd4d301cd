// Command pipelinecheck exercises the speech providers directly from the
// command line, bypassing the HTTP layer. Useful for verifying credentials
// before deploying.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/murmurware/voice-relay/backend/internal/config"
	"github.com/murmurware/voice-relay/backend/internal/service/stt"
	"github.com/murmurware/voice-relay/backend/internal/service/tts"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "check mode: stt or tts")
	audioPath := flag.String("audio", "", "input audio file for stt mode")
	text := flag.String("text", "", "input text for tts mode")
	outputPath := flag.String("out", "pipelinecheck.mp3", "output audio file for tts mode")
	voiceID := flag.String("voice", "", "voice ID for tts mode, defaults to MURF_VOICE_ID")
	timeout := flag.Duration("timeout", 90*time.Second, "request timeout")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "stt":
		runSTT(ctx, cfg, *audioPath)
	case "tts":
		runTTS(ctx, cfg, *text, *voiceID, *outputPath)
	default:
		flag.Usage()
		log.Fatal("specify a check mode with -mode=stt or -mode=tts")
	}
}

func runSTT(ctx context.Context, cfg *config.Config, audioPath string) {
	if !cfg.STT.Enabled() {
		log.Fatal("ASSEMBLYAI_API_KEY is not configured")
	}
	if audioPath == "" {
		log.Fatal("stt mode requires -audio with a path to an audio file")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	client := stt.NewClient(cfg.STT.APIKey,
		stt.WithBaseURL(cfg.STT.BaseURL),
		stt.WithPollInterval(cfg.STT.PollInterval),
		stt.WithMaxPolls(cfg.STT.MaxPolls),
	)

	log.Printf("transcribing %s (%d bytes)", audioPath, len(audio))
	started := time.Now()

	transcript, err := client.Transcribe(ctx, audio)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcription finished in %s", time.Since(started).Round(time.Millisecond))
	fmt.Println(transcript)
}

func runTTS(ctx context.Context, cfg *config.Config, text, voiceID, outputPath string) {
	if !cfg.TTS.Enabled() {
		log.Fatal("MURF_API_KEY is not configured")
	}
	if text == "" {
		log.Fatal("tts mode requires -text with the text to speak")
	}

	if voiceID == "" {
		voiceID = cfg.TTS.VoiceID
	}
	client := tts.NewClient(cfg.TTS.APIKey,
		tts.WithBaseURL(cfg.TTS.BaseURL),
		tts.WithVoiceID(voiceID),
	)

	log.Printf("synthesizing %d characters", len(text))
	started := time.Now()

	clip, err := client.Generate(ctx, text)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if err := os.WriteFile(outputPath, clip, 0o644); err != nil {
		log.Fatalf("failed to write output file: %v", err)
	}

	log.Printf("synthesis finished in %s, wrote %d bytes to %s",
		time.Since(started).Round(time.Millisecond), len(clip), outputPath)
}
