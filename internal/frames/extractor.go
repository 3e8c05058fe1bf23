// Package frames decodes an uploaded video into a lazy, finite sequence of
// sampled JPEG frames. Container decoding is delegated to ffmpeg/ffprobe
// subprocesses; there is no pure-Go decoder for arbitrary incident footage
// and a cgo binding would be heavier than piping MJPEG.
package frames

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// DecodeError is returned when the video container cannot be opened at
// all. It is session-fatal.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("open video %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// VideoInfo is the container metadata gathered before iteration, passed
// verbatim into the complete event.
type VideoInfo struct {
	FPS               float64 `json:"fps"`
	TotalFrames       int64   `json:"total_frames"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DurationFormatted string  `json:"duration_formatted"`
}

// Frame is one sampled still image.
type Frame struct {
	FrameNumber      uint64  `json:"frame_number"`
	Timestamp        string  `json:"timestamp"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	ImageBase64      string  `json:"image_base64"`
}

const jpegQuality = 80

type ffprobeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Extractor opens a video file and lazily yields sampled frames.
// Non-restartable, one active iteration at a time, with a side method to
// re-pull an arbitrary frame by index.
type Extractor struct {
	path string
	info VideoInfo

	ffmpegPath  string
	ffprobePath string
}

// Open inspects the video at path and returns an Extractor ready to iterate,
// or a *DecodeError if the container cannot be opened/probed.
func Open(ctx context.Context, path string) (*Extractor, error) {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffprobe not available: %w", err)}
	}
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffmpeg not available: %w", err)}
	}

	info, err := probe(ctx, ffprobePath, path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &Extractor{
		path:        path,
		info:        info,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

func probe(ctx context.Context, ffprobePath, path string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames:format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return VideoInfo{}, errors.New("ffprobe: no video stream found")
	}
	stream := parsed.Streams[0]

	fps := parseFrameRate(stream.RFrameRate)
	duration := parseFloat(parsed.Format.Duration)
	totalFrames := parseInt(stream.NbFrames)
	if totalFrames == 0 && fps > 0 {
		totalFrames = int64(duration * fps)
	}

	return VideoInfo{
		FPS:               fps,
		TotalFrames:       totalFrames,
		DurationSeconds:   duration,
		Width:             stream.Width,
		Height:            stream.Height,
		DurationFormatted: formatDuration(duration),
	}, nil
}

// Info returns the VideoInfo gathered when the extractor was opened.
func (e *Extractor) Info() VideoInfo { return e.info }

// frameInterval converts a sampling interval in seconds to a stride in
// source frames, never below one.
func frameInterval(fps, intervalSeconds float64) int {
	n := int(fps * intervalSeconds)
	if n < 1 {
		return 1
	}
	return n
}

// Frames returns a channel of sampled Frame records. The channel is closed
// when the source is exhausted, decoding fails mid-stream, or ctx is
// cancelled. It is non-restartable: call it at most once per Extractor.
func (e *Extractor) Frames(ctx context.Context, intervalSeconds float64) <-chan Frame {
	out := make(chan Frame)
	interval := frameInterval(e.info.FPS, intervalSeconds)

	go func() {
		defer close(out)

		cmd := exec.CommandContext(ctx, e.ffmpegPath,
			"-v", "error",
			"-i", e.path,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-",
		)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return
		}
		if err := cmd.Start(); err != nil {
			return
		}
		defer cmd.Wait()

		reader := bufio.NewReader(stdout)
		var frameCount uint64
		for {
			raw, err := readMJPEGFrame(reader)
			if err != nil {
				// Mid-stream decode failure or clean EOF: terminate
				// without raising.
				return
			}

			if frameCount%uint64(interval) == 0 {
				b64, encErr := recompressJPEG(raw)
				if encErr == nil {
					timestampSeconds := float64(frameCount) / fpsOrDefault(e.info.FPS)
					select {
					case out <- Frame{
						FrameNumber:      frameCount,
						Timestamp:        formatDuration(timestampSeconds),
						TimestampSeconds: timestampSeconds,
						ImageBase64:      b64,
					}:
					case <-ctx.Done():
						return
					}
				}
			}
			frameCount++

			// Cooperative yield point between frames.
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	return out
}

// FrameAt re-extracts a single frame by index, independent of the
// streaming Frames sequence. Only valid while the extractor's underlying
// file still exists.
func (e *Extractor) FrameAt(ctx context.Context, frameNumber uint64) (Frame, error) {
	if e.info.FPS <= 0 {
		return Frame{}, errors.New("frames: unknown frame rate, cannot seek")
	}
	timestampSeconds := float64(frameNumber) / e.info.FPS

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", timestampSeconds),
		"-i", e.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	if err := cmd.Run(); err != nil {
		return Frame{}, fmt.Errorf("frames: seek frame %d: %w", frameNumber, err)
	}

	b64, err := recompressJPEG(buf.Bytes())
	if err != nil {
		return Frame{}, fmt.Errorf("frames: encode frame %d: %w", frameNumber, err)
	}

	return Frame{
		FrameNumber:      frameNumber,
		Timestamp:        formatDuration(timestampSeconds),
		TimestampSeconds: timestampSeconds,
		ImageBase64:      b64,
	}, nil
}

// readMJPEGFrame scans an MJPEG elementary stream for the next complete
// JPEG (SOI 0xFFD8 .. EOI 0xFFD9) and returns its raw bytes.
func readMJPEGFrame(r *bufio.Reader) ([]byte, error) {
	if err := discardUntilSOI(r); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})

	prev := byte(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(b)
		if prev == 0xFF && b == 0xD9 {
			return buf.Bytes(), nil
		}
		prev = b
	}
}

func discardUntilSOI(r *bufio.Reader) error {
	prev := byte(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if prev == 0xFF && b == 0xD8 {
			return nil
		}
		prev = b
	}
}

// recompressJPEG decodes raw JPEG bytes and re-encodes at quality 80,
// base64-prefixed as a data URI.
func recompressJPEG(raw []byte) (string, error) {
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	return encodeDataURI(img)
}

func encodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func fpsOrDefault(fps float64) float64 {
	if fps <= 0 {
		return 1
	}
	return fps
}

// Release removes the temp file backing a session's upload. The orchestrator
// owns the temp file's lifecycle and calls this during step 6/cancellation.
func Release(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseFrameRate parses ffprobe's r_frame_rate, given as "num/den".
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return parseFloat(s)
	}
	num := parseFloat(parts[0])
	den := parseFloat(parts[1])
	if den == 0 {
		return 0
	}
	return num / den
}
