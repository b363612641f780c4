package imaging

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

var (
	// ErrDecode means the input bytes are not a valid raster image.
	ErrDecode = errors.New("image decode failed")
	// ErrEncode means JPEG encoding failed.
	ErrEncode = errors.New("image encode failed")
)

// Options controls the compression pipeline. Zero values fall back to the
// defaults below.
type Options struct {
	MaxWidth       int
	MaxHeight      int
	InitialQuality int
	QualityFloor   int
	QualityStep    int
	MaxOutputBytes int
}

// Defaults match the production pipeline: fit inside 600x600, start at
// quality 60 and walk down in steps of 5 to a floor of 30 until the output
// is under 50 KiB.
const (
	DefaultMaxWidth       = 600
	DefaultMaxHeight      = 600
	DefaultInitialQuality = 60
	DefaultQualityFloor   = 30
	DefaultQualityStep    = 5
	DefaultMaxOutputBytes = 50 * 1024
)

// Result is the outcome of one compression run.
type Result struct {
	Bytes    []byte
	Width    int
	Height   int
	Quality  int
	Attempts int
}

// UnderBudget reports whether the final encoding met the size target.
func (r *Result) UnderBudget(maxBytes int) bool {
	return len(r.Bytes) <= maxBytes
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.InitialQuality <= 0 {
		o.InitialQuality = DefaultInitialQuality
	}
	if o.QualityFloor <= 0 {
		o.QualityFloor = DefaultQualityFloor
	}
	if o.QualityStep <= 0 {
		o.QualityStep = DefaultQualityStep
	}
	if o.MaxOutputBytes <= 0 {
		o.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return o
}

// Compress decodes data, scales it down to fit inside the configured box
// (never upscaling), and re-encodes it as JPEG at declining quality until the
// output is under MaxOutputBytes or the quality floor is reached.
//
// The loop is bounded: at most 1 + (InitialQuality-QualityFloor)/QualityStep
// encode attempts. The result is best-effort — it is returned even if the
// size target was not met at the floor.
func Compress(data []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > opts.MaxWidth || bounds.Dy() > opts.MaxHeight {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	quality := opts.InitialQuality
	attempts := 0

	for {
		buf.Reset()
		attempts++

		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}

		if buf.Len() <= opts.MaxOutputBytes || quality <= opts.QualityFloor {
			break
		}

		quality -= opts.QualityStep
		if quality < opts.QualityFloor {
			quality = opts.QualityFloor
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return &Result{
		Bytes:    out,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Quality:  quality,
		Attempts: attempts,
	}, nil
}

// MaxAttempts returns the upper bound on encode attempts for the given
// options.
func MaxAttempts(opts Options) int {
	opts = opts.withDefaults()
	if opts.InitialQuality <= opts.QualityFloor {
		return 1
	}
	span := opts.InitialQuality - opts.QualityFloor
	return 1 + (span+opts.QualityStep-1)/opts.QualityStep
}
