package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

// MaxUploadBytes caps a single photo upload.
const MaxUploadBytes = 8 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Upload is a photo received from a reporter.
type Upload struct {
	Data        []byte
	ContentType string
}

// Service decides which image variants must exist and where clients fetch them.
type Service struct {
	storage Storage
	blurrer Blurrer
	urlTTL  time.Duration
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithURLTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.urlTTL = ttl
		}
	}
}

func NewService(storage Storage, blurrer Blurrer, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		blurrer: blurrer,
		urlTTL:  5 * time.Minute,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks size and sniffed content type before anything is stored.
func (u Upload) Validate() error {
	if len(u.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "image is empty")
	}
	if len(u.Data) > MaxUploadBytes {
		return dErrors.New(dErrors.CodeValidation, "image exceeds 8MB")
	}
	if _, ok := allowedTypes[http.DetectContentType(u.Data)]; !ok {
		return dErrors.New(dErrors.CodeValidation, "image must be JPEG or PNG")
	}
	return nil
}

func objectKey(ref models.Ref, variant, ext string) string {
	return fmt.Sprintf("records/%s/%s/%s%s", ref.Kind, ref.ID, variant, ext)
}

// Store saves a new original for ref. Found records also get a fresh blurred
// variant because the original changed.
func (s *Service) Store(ctx context.Context, ref models.Ref, upload Upload) (models.Image, error) {
	if err := upload.Validate(); err != nil {
		return models.Image{}, err
	}
	contentType := http.DetectContentType(upload.Data)
	img := models.Image{Original: objectKey(ref, "original", allowedTypes[contentType])}
	if err := s.storage.Put(ctx, img.Original, upload.Data, contentType); err != nil {
		return models.Image{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store image")
	}
	if !NeedsDerived(ref.Kind, img) {
		return img, nil
	}
	blurredKey, err := s.derive(ctx, ref, upload.Data)
	if err != nil {
		return models.Image{}, err
	}
	img.Blurred = blurredKey
	return img, nil
}

// NeedsDerived reports whether a blurred variant must be (re)created: found
// records with an original and no derivative.
func NeedsDerived(kind id.RecordKind, img models.Image) bool {
	return kind == id.RecordKindFound && img.Original != "" && img.Blurred == ""
}

// EnsureDerived regenerates a missing blurred variant. changed reports whether
// the record's image must be persisted.
func (s *Service) EnsureDerived(ctx context.Context, r *models.Record) (img models.Image, changed bool, err error) {
	if !NeedsDerived(r.Kind, r.Image) {
		return r.Image, false, nil
	}
	original, err := s.storage.Get(ctx, r.Image.Original)
	if err != nil {
		return r.Image, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load original image")
	}
	key, err := s.derive(ctx, r.Ref(), original)
	if err != nil {
		return r.Image, false, err
	}
	img = r.Image
	img.Blurred = key
	return img, true, nil
}

func (s *Service) derive(ctx context.Context, ref models.Ref, original []byte) (string, error) {
	blurred, err := s.blurrer.Blur(original)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "image could not be processed")
	}
	key := objectKey(ref, "blurred", ".jpg")
	if err := s.storage.Put(ctx, key, blurred, "image/jpeg"); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store blurred image")
	}
	return key, nil
}

// PublicURL is the image shown on public listings: the blurred variant for found
// records, the owner's own photo for lost ones. Found records without a blurred
// variant show no image rather than the original.
func (s *Service) PublicURL(ctx context.Context, r *models.Record) string {
	key := r.Image.Original
	if r.Kind == id.RecordKindFound {
		key = r.Image.Blurred
	}
	if key == "" {
		return ""
	}
	url, err := s.storage.URL(ctx, key, s.urlTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to address public image",
			"record", r.Ref().String(),
			"error", err,
		)
		return ""
	}
	return url
}

// OriginalURL addresses the unblurred photo. Callers must have redeemed an
// image-access token for r first.
func (s *Service) OriginalURL(ctx context.Context, r *models.Record) (string, time.Time, error) {
	if r.Image.Original == "" {
		return "", time.Time{}, dErrors.New(dErrors.CodeNotFound, "record has no image")
	}
	url, err := s.storage.URL(ctx, r.Image.Original, s.urlTTL)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to address image")
	}
	return url, time.Now().Add(s.urlTTL), nil
}
