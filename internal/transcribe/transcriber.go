package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/user/stashd/internal/config"
)

const (
	StrategyDirect  = "direct"
	StrategyChunked = "chunked"
	StrategyCached  = "cached"
)

type Result struct {
	Text     string
	VideoURL string
	Strategy string
}

// Engine extracts audio from a video URL and transcribes it, chunking files
// that exceed the provider's upload limit.
type Engine struct {
	cfg    config.TranscribeConfig
	tmpDir string
	runner Runner
	speech SpeechClient
}

func NewEngine(cfg *config.Config, runner Runner, speech SpeechClient) *Engine {
	return &Engine{
		cfg:    cfg.Transcribe,
		tmpDir: cfg.TmpAudioDir(),
		runner: runner,
		speech: speech,
	}
}

// NewEngineFromEnv wires the real tool runner and Whisper client. It fails
// fast when the provider credential is missing.
func NewEngineFromEnv(cfg *config.Config) (*Engine, error) {
	speech, err := NewWhisperClient()
	if err != nil {
		return nil, err
	}
	return NewEngine(cfg, ExecRunner{}, speech), nil
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitizeID(id string) string {
	safe := unsafeIDChars.ReplaceAllString(id, "")
	if len(safe) > 200 {
		safe = safe[:200]
	}
	if safe == "" {
		safe = "job"
	}
	return safe
}

// Transcribe runs the full pipeline for one video. Any failure is fatal for
// this job and propagates; nothing is retried automatically.
func (e *Engine) Transcribe(ctx context.Context, videoURL, bookmarkID string) (*Result, error) {
	if err := os.MkdirAll(e.tmpDir, 0755); err != nil {
		return nil, err
	}

	audioPath := filepath.Join(e.tmpDir, sanitizeID(bookmarkID)+".mp3")
	defer os.Remove(audioPath)

	if _, err := e.runner.Run(ctx, e.cfg.YTDLP, "-x", "--audio-format", "mp3", "-o", audioPath, videoURL); err != nil {
		return nil, fmt.Errorf("audio extraction: %w", err)
	}

	if dur, err := e.probeDuration(ctx, audioPath); err != nil {
		return nil, fmt.Errorf("audio probe: %w", err)
	} else {
		logrus.WithField("bookmark", bookmarkID).Infof("extracted audio: %.1fs", dur)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("stat audio: %w", err)
	}

	if info.Size() <= e.cfg.MaxUploadBytes {
		text, err := e.speech.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, fmt.Errorf("transcription: %w", err)
		}
		return &Result{Text: text, VideoURL: videoURL, Strategy: StrategyDirect}, nil
	}

	text, err := e.transcribeChunked(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text, VideoURL: videoURL, Strategy: StrategyChunked}, nil
}

func (e *Engine) probeDuration(ctx context.Context, audioPath string) (float64, error) {
	out, err := e.runner.Run(ctx, e.cfg.FFprobe,
		"-v", "error", "-show_entries", "format=duration", "-of", "csv=p=0", audioPath)
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return dur, nil
}

// transcribeChunked splits the audio into fixed-duration stream-copied
// segments, transcribes each in order, and joins the non-empty parts. Chunk
// files are removed on every exit path.
func (e *Engine) transcribeChunked(ctx context.Context, audioPath string) (string, error) {
	prefix := strings.TrimSuffix(audioPath, ".mp3")
	pattern := prefix + "-chunk-%03d.mp3"

	if _, err := e.runner.Run(ctx, e.cfg.FFmpeg,
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(e.cfg.ChunkSeconds),
		"-c", "copy",
		"-reset_timestamps", "1",
		pattern); err != nil {
		return "", fmt.Errorf("audio segmenting: %w", err)
	}

	chunks, err := filepath.Glob(prefix + "-chunk-*.mp3")
	if err != nil {
		return "", err
	}
	sort.Strings(chunks)

	defer func() {
		for _, chunk := range chunks {
			os.Remove(chunk)
		}
	}()

	if len(chunks) == 0 {
		return "", fmt.Errorf("segmenting produced no chunks for %s", audioPath)
	}

	var parts []string
	for i, chunk := range chunks {
		logrus.Infof("transcribing chunk %d/%d", i+1, len(chunks))
		text, err := e.speech.Transcribe(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("transcription of chunk %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}
