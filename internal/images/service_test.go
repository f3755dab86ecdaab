package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	storage *MemoryStorage
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = NewMemoryStorage()
	s.service = NewService(s.storage, GaussianBlurrer{Sigma: 2})
}

func samplePNG(t interface{ Helper() }) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 16), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func (s *ServiceSuite) TestFoundUploadDerivesBlurred() {
	ref := models.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	img, err := s.service.Store(context.Background(), ref, Upload{Data: samplePNG(s.T())})
	s.Require().NoError(err)
	s.Contains(img.Original, "original.png")
	s.Contains(img.Blurred, "blurred.jpg")

	blurred, err := s.storage.Get(context.Background(), img.Blurred)
	s.Require().NoError(err)
	s.Equal("image/jpeg", httpDetect(blurred))
}

func (s *ServiceSuite) TestLostUploadHasNoDerivative() {
	ref := models.Ref{Kind: id.RecordKindLost, ID: id.NewRecordID()}
	img, err := s.service.Store(context.Background(), ref, Upload{Data: samplePNG(s.T())})
	s.Require().NoError(err)
	s.Empty(img.Blurred)
}

func (s *ServiceSuite) TestRejectsNonImage() {
	ref := models.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	_, err := s.service.Store(context.Background(), ref, Upload{Data: []byte("%PDF-1.4 not an image")})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestEnsureDerivedRegeneratesMissingVariant() {
	ctx := context.Background()
	r := &models.Record{ID: id.NewRecordID(), Kind: id.RecordKindFound}
	img, err := s.service.Store(ctx, r.Ref(), Upload{Data: samplePNG(s.T())})
	s.Require().NoError(err)
	r.Image = models.Image{Original: img.Original}

	s.Empty(s.service.PublicURL(ctx, r), "found record never falls back to the original")

	updated, changed, err := s.service.EnsureDerived(ctx, r)
	s.Require().NoError(err)
	s.True(changed)
	s.NotEmpty(updated.Blurred)

	r.Image = updated
	_, changed, err = s.service.EnsureDerived(ctx, r)
	s.Require().NoError(err)
	s.False(changed)
	s.Equal("memory://"+updated.Blurred, s.service.PublicURL(ctx, r))
}

func httpDetect(b []byte) string {
	return http.DetectContentType(b)
}
