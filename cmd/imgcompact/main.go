package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shopdesk/config"
	"shopdesk/internal/imaging"
	"shopdesk/internal/storage"
)

// imgcompact walks the product image bucket and recompresses every object
// over the size budget in place. Useful for a one-off cleanup of images
// uploaded before server-side compression existed.
func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be compressed without uploading")
	flag.Parse()

	cfg := config.Load()

	client, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to connect to object storage: %v", err)
	}

	ctx := context.Background()

	keys, err := client.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list bucket %s: %v", client.Bucket(), err)
	}

	fmt.Printf("Found %d objects in bucket %s\n\n", len(keys), client.Bucket())

	opts := imaging.Options{
		MaxWidth:       cfg.Image.MaxWidth,
		MaxHeight:      cfg.Image.MaxHeight,
		InitialQuality: cfg.Image.InitialQuality,
		QualityFloor:   cfg.Image.QualityFloor,
		QualityStep:    cfg.Image.QualityStep,
		MaxOutputBytes: cfg.Image.MaxOutputBytes,
	}

	var compressed, skipped, failed int
	var savedBytes int64

	for i, key := range keys {
		data, err := client.Download(ctx, key)
		if err != nil {
			fmt.Printf("[%d/%d] %s: download failed: %v\n", i+1, len(keys), key, err)
			failed++
			continue
		}

		if len(data) <= cfg.Image.MaxOutputBytes {
			fmt.Printf("[%d/%d] %s: %d KiB, already small enough\n", i+1, len(keys), key, len(data)/1024)
			skipped++
			continue
		}

		res, err := imaging.Compress(data, opts)
		if err != nil {
			fmt.Printf("[%d/%d] %s: %v\n", i+1, len(keys), key, err)
			failed++
			continue
		}

		if *dryRun {
			fmt.Printf("[%d/%d] %s: %d KiB -> %d KiB at q=%d (dry run)\n",
				i+1, len(keys), key, len(data)/1024, len(res.Bytes)/1024, res.Quality)
		} else {
			if err := client.Upload(ctx, key, res.Bytes, "image/jpeg"); err != nil {
				fmt.Printf("[%d/%d] %s: upload failed: %v\n", i+1, len(keys), key, err)
				failed++
				continue
			}
			fmt.Printf("[%d/%d] %s: %d KiB -> %d KiB at q=%d\n",
				i+1, len(keys), key, len(data)/1024, len(res.Bytes)/1024, res.Quality)
		}

		compressed++
		savedBytes += int64(len(data) - len(res.Bytes))

		// Go easy on the storage service.
		if i < len(keys)-1 && cfg.Storage.ItemDelay > 0 {
			time.Sleep(cfg.Storage.ItemDelay)
		}
	}

	fmt.Printf("\nDone: %d compressed, %d skipped, %d failed, %d KiB saved\n",
		compressed, skipped, failed, savedBytes/1024)

	if failed > 0 {
		os.Exit(1)
	}
}
