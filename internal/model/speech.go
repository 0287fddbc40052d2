package model

import (
	"context"
	"mime"
	"strconv"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/skypro1111/feelcard-service/internal/audio"
	"github.com/skypro1111/feelcard-service/internal/card"
)

const speechInstruction = "Say this gently and empathetically: "

// SpeechSynthesizer reads the analysis speech prompt aloud and returns a WAV container
type SpeechSynthesizer struct {
	base
}

// NewSpeechSynthesizer creates a speech synthesizer. A nil svc makes every
// call fail with a configuration error.
func NewSpeechSynthesizer(svc Service, config Config, logger *logrus.Entry) *SpeechSynthesizer {
	return &SpeechSynthesizer{base{svc: svc, config: config, logger: logger}}
}

// SynthesizeSpeech makes one audio-only request with the configured voice and
// wraps the returned PCM samples in a WAV header
func (s *SpeechSynthesizer) SynthesizeSpeech(ctx context.Context, analysis card.Analysis, id string) (card.Artifact, error) {
	const op = "synthesize speech"

	if err := s.ensureService(op); err != nil {
		return card.Artifact{}, err
	}

	resp, err := s.svc.GenerateContent(ctx, s.config.SpeechModel, genai.Text(speechInstruction+analysis.SpeechPrompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: s.config.Voice,
				},
			},
		},
	})
	if err != nil {
		return card.Artifact{}, card.Fail(card.KindTransport, op, err)
	}

	blob := inlineData(resp, "audio/")
	if blob == nil {
		return card.Artifact{}, card.Fail(card.KindContract, op, card.ErrNoInlineData)
	}

	format := pcmFormat(blob.MIMEType, s.config.Speech)
	wav := audio.EncodeWAV(blob.Data, format)

	entry := s.logger.WithFields(logrus.Fields{
		"card_id":     id,
		"sample_rate": format.SampleRate,
		"pcm_bytes":   len(blob.Data),
	})
	if info, err := audio.GetWAVInfo(wav); err == nil {
		entry = entry.WithField("duration_seconds", info.Duration)
	}
	entry.Debug("Speech synthesized")

	return card.Artifact{
		Data:        wav,
		ContentType: "audio/wav",
		Ext:         ".wav",
	}, nil
}

// pcmFormat reads the sample rate from an inline MIME type such as
// "audio/L16;codec=pcm;rate=24000", keeping the configured format otherwise
func pcmFormat(mimeType string, configured audio.Format) audio.Format {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return configured
	}

	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		configured.SampleRate = rate
	}
	return configured
}
