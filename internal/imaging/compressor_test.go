package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes encodes a generated RGBA image as PNG. Noise makes it expensive
// to compress, a flat fill makes it cheap.
func pngBytes(t *testing.T, width, height int, noisy bool) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if noisy {
				img.Set(x, y, color.RGBA{
					R: uint8(rng.Intn(256)),
					G: uint8(rng.Intn(256)),
					B: uint8(rng.Intn(256)),
					A: 255,
				})
			} else {
				img.Set(x, y, color.RGBA{R: 200, G: 180, B: 160, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressNeverUpscales(t *testing.T) {
	src := pngBytes(t, 120, 80, false)

	res, err := Compress(src, Options{MaxWidth: 600, MaxHeight: 600})
	require.NoError(t, err)

	assert.Equal(t, 120, res.Width)
	assert.Equal(t, 80, res.Height)
}

func TestCompressResizesToFit(t *testing.T) {
	src := pngBytes(t, 1200, 800, false)

	res, err := Compress(src, Options{MaxWidth: 600, MaxHeight: 600})
	require.NoError(t, err)

	// Aspect ratio preserved, neither dimension above the max.
	assert.Equal(t, 600, res.Width)
	assert.Equal(t, 400, res.Height)
}

func TestCompressAttemptsAreBounded(t *testing.T) {
	// Noise defeats JPEG compression, so with a tiny budget the loop must
	// walk all the way down to the quality floor and stop there.
	src := pngBytes(t, 600, 600, true)

	opts := Options{
		InitialQuality: 60,
		QualityFloor:   30,
		QualityStep:    5,
		MaxOutputBytes: 1, // unreachable target
	}

	res, err := Compress(src, opts)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.Attempts, MaxAttempts(opts))
	assert.Equal(t, opts.QualityFloor, res.Quality)
	// Best-effort: bytes come back even though the budget was missed.
	assert.NotEmpty(t, res.Bytes)
	assert.False(t, res.UnderBudget(opts.MaxOutputBytes))
}

func TestCompressStopsEarlyWhenUnderBudget(t *testing.T) {
	src := pngBytes(t, 300, 300, false)

	res, err := Compress(src, Options{MaxOutputBytes: 1 << 20})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, DefaultInitialQuality, res.Quality)
	assert.True(t, res.UnderBudget(1<<20))
}

func TestCompressRejectsInvalidImage(t *testing.T) {
	_, err := Compress([]byte("definitely not an image"), Options{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestMaxAttempts(t *testing.T) {
	assert.Equal(t, 7, MaxAttempts(Options{InitialQuality: 60, QualityFloor: 30, QualityStep: 5}))
	assert.Equal(t, 1, MaxAttempts(Options{InitialQuality: 30, QualityFloor: 30, QualityStep: 5}))
}
