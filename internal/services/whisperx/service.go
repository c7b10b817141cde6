package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "clipforge/internal/language"
)

var commandContext = exec.CommandContext

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg Config
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Result contains the output artifacts of one transcription run.
type Result struct {
	Transcript Transcript
	SRTPath    string
	JSONPath   string
}

// Transcribe runs WhisperX over a mono 16 kHz WAV file and loads the
// word-level transcript it produces. outputDir receives the SRT and JSON
// artifacts; it defaults to the source directory.
func (s *Service) Transcribe(ctx context.Context, source, outputDir, language string) (Result, error) {
	var result Result

	if source == "" {
		return result, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(source, outputDir, language)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.SRTPath = filepath.Join(outputDir, baseName+".srt")
	result.JSONPath = filepath.Join(outputDir, baseName+".json")

	transcript, err := LoadTranscript(result.JSONPath)
	if err != nil {
		return result, fmt.Errorf("whisperx output: %w", err)
	}
	result.Transcript = transcript
	return result, nil
}

// run executes a command through the injectable commandContext.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	cmd := commandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	// Force legacy behavior so bundled WhisperX binaries can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 32)

	// Index URLs
	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	// VAD method
	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	// Language
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}

	// Device
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Word represents a single word with timing from WhisperX output.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Transcript is the parsed WhisperX JSON payload.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Text joins segment texts into a single transcript string.
func (t Transcript) Text() string {
	var parts []string
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Duration returns the end time of the last segment.
func (t Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// LoadTranscript loads a transcript from a WhisperX JSON file.
func LoadTranscript(jsonPath string) (Transcript, error) {
	var transcript Transcript
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return transcript, err
	}
	if err := json.Unmarshal(data, &transcript); err != nil {
		return transcript, fmt.Errorf("parse whisperx json: %w", err)
	}
	return transcript, nil
}
