package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Runner executes an external tool and returns its combined output. The
// engine never resolves binaries implicitly; configured paths are passed in,
// and tests substitute a fake runner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return out, fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return out, nil
}

// SpeechClient submits one audio file to a speech-to-text provider.
type SpeechClient interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type whisperClient struct {
	client *openai.Client
}

// NewWhisperClient builds the Whisper-backed speech client. A missing API key
// is a fatal error raised before any audio work is attempted.
func NewWhisperClient() (SpeechClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &whisperClient{client: openai.NewClient(apiKey)}, nil
}

func (w *whisperClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
