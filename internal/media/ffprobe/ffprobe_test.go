package ffprobe

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080, AvgFrameRate: "30000/1001"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
	if w, h := result.VideoResolution(); w != 1920 || h != 1080 {
		t.Fatalf("unexpected resolution %dx%d", w, h)
	}
	if result.IsVertical() {
		t.Fatal("expected landscape source to not be vertical")
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestPrimaryStreamsSkipMismatchedTypes(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Index: 0},
			{CodecType: "video", Index: 1, Width: 720, Height: 1280},
		},
	}
	video := result.PrimaryVideoStream()
	if video == nil || video.Index != 1 {
		t.Fatalf("expected video stream index 1, got %+v", video)
	}
	audio := result.PrimaryAudioStream()
	if audio == nil || audio.Index != 0 {
		t.Fatalf("expected audio stream index 0, got %+v", audio)
	}
	if !result.IsVertical() {
		t.Fatal("expected 720x1280 to report vertical")
	}

	empty := Result{}
	if empty.PrimaryVideoStream() != nil {
		t.Fatal("expected nil video stream for empty result")
	}
	if w, h := empty.VideoResolution(); w != 0 || h != 0 {
		t.Fatalf("expected zero resolution, got %dx%d", w, h)
	}
}

func TestStreamFrameRate(t *testing.T) {
	cases := []struct {
		rate string
		want float64
	}{
		{"30000/1001", 29.97002997002997},
		{"60/1", 60},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"x/y", 0},
	}
	for _, tc := range cases {
		stream := Stream{AvgFrameRate: tc.rate}
		if got := stream.FrameRate(); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("FrameRate(%q) = %f, want %f", tc.rate, got, tc.want)
		}
	}
}

func TestInspectRequiresPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "", "   "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectParsesJSON(t *testing.T) {
	setHelperCommand(t, "probe")

	result, err := Inspect(context.Background(), "", "/library/vod.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 7205.4 {
		t.Fatalf("unexpected duration: %f", result.DurationSeconds())
	}
	if w, h := result.VideoResolution(); w != 1920 || h != 1080 {
		t.Fatalf("unexpected resolution %dx%d", w, h)
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw JSON payload to be retained")
	}
}

func TestInspectReportsProbeFailure(t *testing.T) {
	setHelperCommand(t, "failure")

	if _, err := Inspect(context.Background(), "", "/library/missing.mp4"); err == nil {
		t.Fatal("expected error from ffprobe exit status")
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("FFPROBE_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFPROBE_HELPER_MODE") {
	case "probe":
		fmt.Println(`{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "60/1"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "/library/vod.mp4", "nb_streams": 2, "duration": "7205.400000", "size": "5368709120", "bit_rate": "6000000", "format_name": "mov,mp4,m4a"}
}`)
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "No such file or directory")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
