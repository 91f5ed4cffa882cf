package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/logger"
	"go.uber.org/zap"
)

// MaxPictureBytes caps the size of an uploaded recipe picture
const MaxPictureBytes = 10 << 20

// ObjectStore is the subset of the S3 client used for uploads
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of the S3 presign client used for downloads
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var pictureExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PictureService stores recipe pictures in S3
type PictureService struct {
	store     ObjectStore
	presigner Presigner
	bucket    string
	recipes   *RecipeService
}

// NewPictureService creates a PictureService from explicit clients
func NewPictureService(store ObjectStore, presigner Presigner, bucket string, recipes *RecipeService) *PictureService {
	return &PictureService{store: store, presigner: presigner, bucket: bucket, recipes: recipes}
}

// NewS3PictureService wires the service to the configured bucket
func NewS3PictureService(s3cfg *config.S3Config, recipes *RecipeService) *PictureService {
	return NewPictureService(s3cfg.Client, s3.NewPresignClient(s3cfg.Client), s3cfg.BucketName, recipes)
}

// Upload stores a picture for a recipe and records its object key.
// It returns the public object URL and the key.
func (s *PictureService) Upload(ctx context.Context, recipeID uuid.UUID, filename string, r io.Reader) (string, string, error) {
	if _, err := s.recipes.GetRecipe(ctx, recipeID); err != nil {
		return "", "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxPictureBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("failed to read picture: %w", err)
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}
	if len(data) > MaxPictureBytes {
		return "", "", fmt.Errorf("%w: larger than %d bytes", ErrUnsupportedImage, MaxPictureBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := pictureExtensions[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	if given := strings.ToLower(filepath.Ext(filename)); given == ".jpeg" && ext == ".jpg" {
		ext = given
	}

	key := fmt.Sprintf("recipe-pictures/%s/%s%s", recipeID, uuid.NewString(), ext)
	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if err := s.recipes.SetImage(ctx, recipeID, key); err != nil {
		return "", "", err
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	logger.L().Info("uploaded recipe picture", zap.String("recipe_id", recipeID.String()), zap.String("key", key))
	return publicURL, key, nil
}

// PresignedURL returns a temporary download URL for a recipe's picture
func (s *PictureService) PresignedURL(ctx context.Context, recipeID uuid.UUID, expiration time.Duration) (string, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return "", err
	}
	if recipe.ImagePath == "" {
		return "", ErrNoPicture
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(recipe.ImagePath),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign picture: %w", err)
	}
	return presigned.URL, nil
}
