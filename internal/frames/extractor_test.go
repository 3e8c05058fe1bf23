package frames

import (
	"bufio"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameInterval(t *testing.T) {
	tests := []struct {
		fps, interval float64
		want          int
	}{
		{30, 1, 30},
		{25, 2, 50},
		{0, 1, 1},
		{0.5, 1, 1},
		{30, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, frameInterval(tt.fps, tt.interval))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{65, "0:01:05"},
		{3661, "1:01:01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.seconds))
	}
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 12.5, parseFloat("12.5"))
	assert.Equal(t, 0.0, parseFloat("not a number"))
	assert.Equal(t, 3.0, parseFloat("  3  "))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, int64(42), parseInt("42"))
	assert.Equal(t, int64(0), parseInt("nope"))
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, parseFrameRate("30/1"))
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.01)
	assert.Equal(t, 0.0, parseFrameRate("30/0"))
	assert.Equal(t, 25.0, parseFrameRate("25"))
}

func TestFpsOrDefault(t *testing.T) {
	assert.Equal(t, 1.0, fpsOrDefault(0))
	assert.Equal(t, 1.0, fpsOrDefault(-5))
	assert.Equal(t, 24.0, fpsOrDefault(24))
}

func testJPEGBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestReadMJPEGFrame_ExtractsSingleFrame(t *testing.T) {
	raw := testJPEGBytes(t)
	stream := append([]byte{0x00, 0x01}, raw...) // leading junk before SOI
	reader := bufio.NewReader(bytes.NewReader(stream))

	got, err := readMJPEGFrame(reader)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestReadMJPEGFrame_MultipleFramesInSequence(t *testing.T) {
	raw := testJPEGBytes(t)
	stream := append(append([]byte{}, raw...), raw...)
	reader := bufio.NewReader(bytes.NewReader(stream))

	first, err := readMJPEGFrame(reader)
	require.NoError(t, err)
	second, err := readMJPEGFrame(reader)
	require.NoError(t, err)
	assert.Equal(t, raw, first)
	assert.Equal(t, raw, second)
}

func TestReadMJPEGFrame_TruncatedStreamErrors(t *testing.T) {
	reader := bufio.NewReader(bytes.NewReader([]byte{0xFF, 0xD8, 0x00, 0x01}))
	_, err := readMJPEGFrame(reader)
	assert.Error(t, err)
}

func TestRecompressJPEG_ProducesDataURI(t *testing.T) {
	raw := testJPEGBytes(t)
	out, err := recompressJPEG(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "data:image/jpeg;base64,"))
}

func TestRecompressJPEG_InvalidInputErrors(t *testing.T) {
	_, err := recompressJPEG([]byte("not a jpeg"))
	assert.Error(t, err)
}

func TestRelease_MissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, Release("/tmp/sentinel-frames-test-does-not-exist"))
}

func TestRelease_RemovesExistingFile(t *testing.T) {
	f, err := os.CreateTemp("", "sentinel-frames-release-*")
	require.NoError(t, err)
	path := f.Name()
	f.Close()

	require.NoError(t, Release(path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
