// Package storage publishes finished run artifacts to an S3-compatible
// object store.
package storage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

// Publisher uploads a run's video, narration and subtitles to MinIO
// and returns presigned links.
type Publisher struct {
	client  *minio.Client
	bucket  string
	presign time.Duration
}

func NewPublisher(cfg config.StorageConfig) (*Publisher, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse storage endpoint: %w", err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		log.Printf("[storage] Bucket %s missing, creating...", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	presign := time.Duration(cfg.PresignDay) * 24 * time.Hour
	if presign <= 0 {
		presign = 7 * 24 * time.Hour
	}
	return &Publisher{client: client, bucket: cfg.Bucket, presign: presign}, nil
}

// PublishRun uploads every artifact the run produced. Returns a map of
// artifact name to presigned URL.
func (p *Publisher) PublishRun(ctx context.Context, report *types.RunReport) (map[string]string, error) {
	artifacts := map[string]string{
		"video":     report.VideoPath,
		"narration": report.AudioPath,
		"subtitles": report.SubtitlePath,
	}
	links := make(map[string]string)
	for name, path := range artifacts {
		if path == "" {
			continue
		}
		object := fmt.Sprintf("runs/%s/%s", report.RunID, filepath.Base(path))
		link, err := p.uploadFile(ctx, object, path)
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", name, err)
		}
		links[name] = link
	}
	log.Printf("[storage] ✅ Run %s: %d artifacts published", report.RunID, len(links))
	return links, nil
}

func (p *Publisher) uploadFile(ctx context.Context, objectName, path string) (string, error) {
	info, err := p.client.FPutObject(ctx, p.bucket, objectName, path, minio.PutObjectOptions{
		ContentType: contentTypeFor(path),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	log.Printf("[storage] Uploaded %s (%d bytes)", objectName, info.Size)

	presigned, err := p.client.PresignedGetObject(ctx, p.bucket, objectName, p.presign, nil)
	if err != nil {
		log.Printf("[storage] presign %s failed: %v", objectName, err)
		return fmt.Sprintf("/%s/%s", p.bucket, objectName), nil
	}
	return presigned.String(), nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".srt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
