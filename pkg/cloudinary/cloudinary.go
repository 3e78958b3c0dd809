package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service implements the AudioStorage interface using Cloudinary.
// Audio assets live under Cloudinary's "video" resource type.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload sends the audio blob to Cloudinary and returns a secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	folder := strings.Trim(s.folder, "/")
	publicID := buildPublicID(name)

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "video",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("audio uploaded to cloudinary")

	return result.SecureURL, nil
}

// Delete removes the asset behind the given secure URL.
func (s *Service) Delete(ctx context.Context, locator string) error {
	publicID, err := publicIDFromURL(locator)
	if err != nil {
		return err
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "video",
	})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to destroy asset %s: %s", publicID, result.Result)
	}

	s.logger.Info().Str("public_id", publicID).Msg("audio removed from cloudinary")

	return nil
}

// Exists reports whether the asset behind the given secure URL is still stored.
func (s *Service) Exists(ctx context.Context, locator string) (bool, error) {
	publicID, err := publicIDFromURL(locator)
	if err != nil {
		return false, err
	}

	result, err := s.client.Admin.Asset(ctx, admin.AssetParams{
		PublicID:  publicID,
		AssetType: "video",
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up asset: %w", err)
	}
	if result.Error.Message != "" {
		return false, nil
	}

	return result.PublicID != "", nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	return strings.Trim(base, "-")
}

// publicIDFromURL recovers the public ID from a Cloudinary secure URL:
// everything after the /upload/ segment, minus the version prefix and
// the file extension.
func publicIDFromURL(locator string) (string, error) {
	_, after, found := strings.Cut(locator, "/upload/")
	if !found || after == "" {
		return "", fmt.Errorf("unrecognized asset locator %q", locator)
	}

	parts := strings.Split(after, "/")
	if len(parts) > 1 && isVersionSegment(parts[0]) {
		parts = parts[1:]
	}

	publicID := strings.Join(parts, "/")
	publicID = strings.TrimSuffix(publicID, filepath.Ext(publicID))
	if publicID == "" {
		return "", fmt.Errorf("unrecognized asset locator %q", locator)
	}

	return publicID, nil
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
