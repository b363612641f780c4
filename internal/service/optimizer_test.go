package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"shopdesk/config"
	"shopdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImageCfg() config.ImageConfig {
	return config.ImageConfig{
		MaxWidth:       600,
		MaxHeight:      600,
		InitialQuality: 60,
		QualityFloor:   30,
		QualityStep:    5,
		MaxOutputBytes: 50 * 1024,
	}
}

// noisyPNG produces an image PNG cannot compress well, so its encoded size
// is roughly width*height*3 bytes.
func noisyPNG(t *testing.T, size int) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func productWithImage(id, imageURL string) models.Product {
	return models.Product{ID: id, Name: "Product " + id, ImageURL: &imageURL}
}

func TestOptimizeImagesSkipsSmallCompressesLarge(t *testing.T) {
	fs := newFakeStore()
	images := newFakeImageStore()

	// One image already under the 50 KiB budget, two above it.
	small := make([]byte, 40*1024)
	big1 := noisyPNG(t, 220)
	big2 := noisyPNG(t, 180)
	require.Greater(t, len(big1), 50*1024)
	require.Greater(t, len(big2), 50*1024)

	images.objects["small.jpg"] = small
	images.objects["big1.png"] = big1
	images.objects["big2.png"] = big2

	fs.products = []models.Product{
		productWithImage("p1", "https://cdn.example.com/product-images/small.jpg"),
		productWithImage("p2", "https://cdn.example.com/product-images/big1.png"),
		productWithImage("p3", "https://cdn.example.com/product-images/big2.png"),
	}

	o := NewBulkImageOptimizer(fs, images, nil, testImageCfg(), 0)

	var progress []Progress
	report, err := o.OptimizeImages(context.Background(), func(p Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Compressed)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, int64(len(small)+len(big1)+len(big2)), report.OriginalBytes)

	// The small object is untouched; the big ones were re-uploaded smaller.
	assert.Equal(t, small, images.objects["small.jpg"])
	assert.NotContains(t, images.uploads, "small.jpg")
	assert.Contains(t, images.uploads, "big1.png")
	assert.Contains(t, images.uploads, "big2.png")
	assert.Less(t, len(images.objects["big1.png"]), len(big1))
	assert.Less(t, len(images.objects["big2.png"]), len(big2))

	// Progress fired once per image with a running tally.
	require.Len(t, progress, 3)
	assert.Equal(t, 3, progress[0].Total)
	assert.Equal(t, 1, progress[0].Current)
	assert.Equal(t, 3, progress[2].Current)
	assert.Equal(t, report.Compressed, progress[2].Compressed)
}

func TestOptimizeImagesDeduplicatesSharedURLs(t *testing.T) {
	fs := newFakeStore()
	images := newFakeImageStore()
	images.objects["shared.png"] = noisyPNG(t, 200)

	shared := "https://cdn.example.com/product-images/shared.png"
	fs.products = []models.Product{
		productWithImage("p1", shared),
		productWithImage("p2", shared),
		{ID: "p3", Name: "no image"},
		productWithImage("p4", models.PlaceholderImageURL),
	}

	o := NewBulkImageOptimizer(fs, images, nil, testImageCfg(), 0)
	report, err := o.OptimizeImages(context.Background(), nil)
	require.NoError(t, err)

	// Shared URL processed once, placeholder and missing images ignored.
	assert.Equal(t, 1, report.Compressed)
	assert.Len(t, images.uploads, 1)
}

func TestOptimizeImagesContinuesPastFailures(t *testing.T) {
	fs := newFakeStore()
	images := newFakeImageStore()

	images.failDownload["broken.png"] = errors.New("connection reset")
	images.objects["corrupt.bin"] = bytes.Repeat([]byte{0xde, 0xad}, 40*1024) // not an image
	images.objects["good.png"] = noisyPNG(t, 200)

	fs.products = []models.Product{
		productWithImage("p1", "https://cdn.example.com/product-images/broken.png"),
		productWithImage("p2", "https://cdn.example.com/product-images/corrupt.bin"),
		productWithImage("p3", "https://cdn.example.com/product-images/good.png"),
	}

	o := NewBulkImageOptimizer(fs, images, nil, testImageCfg(), 0)
	report, err := o.OptimizeImages(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Errors)
	assert.Equal(t, 1, report.Compressed)
	assert.Contains(t, images.uploads, "good.png")
}

func TestOptimizeImagesNothingToDo(t *testing.T) {
	fs := newFakeStore()
	o := NewBulkImageOptimizer(fs, newFakeImageStore(), nil, testImageCfg(), 0)

	report, err := o.OptimizeImages(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Compressed)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Errors)
}
