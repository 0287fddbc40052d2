package model

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
	"google.golang.org/genai"

	"github.com/skypro1111/feelcard-service/internal/card"
)

// ImageSynthesizer renders the analysis image prompt as a square image
type ImageSynthesizer struct {
	base
}

// NewImageSynthesizer creates an image synthesizer. A nil svc makes every
// call fail with a configuration error.
func NewImageSynthesizer(svc Service, config Config, logger *logrus.Entry) *ImageSynthesizer {
	return &ImageSynthesizer{base{svc: svc, config: config, logger: logger}}
}

// SynthesizeImage makes one image request using only the image prompt
func (s *ImageSynthesizer) SynthesizeImage(ctx context.Context, analysis card.Analysis, id string) (card.Artifact, error) {
	const op = "synthesize image"

	if err := s.ensureService(op); err != nil {
		return card.Artifact{}, err
	}

	resp, err := s.svc.GenerateContent(ctx, s.config.ImageModel, genai.Text(analysis.ImagePrompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: "1:1",
		},
	})
	if err != nil {
		return card.Artifact{}, card.Fail(card.KindTransport, op, err)
	}

	blob := inlineData(resp, "image/")
	if blob == nil {
		return card.Artifact{}, card.Fail(card.KindContract, op, card.ErrNoInlineData)
	}

	info := inspectImage(blob.Data, blob.MIMEType)

	s.logger.WithFields(logrus.Fields{
		"card_id":      id,
		"content_type": info.ContentType,
		"width":        info.Width,
		"height":       info.Height,
		"bytes":        len(blob.Data),
	}).Debug("Image synthesized")

	return card.Artifact{
		Data:        blob.Data,
		ContentType: info.ContentType,
		Ext:         info.Ext,
	}, nil
}

// imageInfo describes an inline image payload
type imageInfo struct {
	ContentType string
	Ext         string
	Width       int
	Height      int
}

var imageTypes = map[string]imageInfo{
	"png":  {ContentType: "image/png", Ext: ".png"},
	"jpeg": {ContentType: "image/jpeg", Ext: ".jpg"},
	"webp": {ContentType: "image/webp", Ext: ".webp"},
}

// inspectImage determines the format and dimensions of data using the
// registered png, jpeg and webp decoders. The declared MIME type wins when the
// bytes cannot be decoded; PNG is assumed when neither is known.
func inspectImage(data []byte, declared string) imageInfo {
	info := imageTypes["png"]
	for _, candidate := range imageTypes {
		if candidate.ContentType == declared {
			info = candidate
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && cfg.Width > 0 {
		if known, ok := imageTypes[format]; ok {
			info = known
		}
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	return info
}
