// Package openai adapts the OpenAI API into core.Invoker functions for the
// three generation domains: speech synthesis (Audio.Speech), image
// generation (Images) and transcription (Audio.Transcriptions). Each
// constructor closes over the request input and reads per-instance knobs
// (voice, size, quality, language) from ModelInstance.Params.
//
// Costs are reported in microcents (1/10000 of a cent) when the model's
// pricing is known, nil otherwise: an unknown cost is never reported as
// zero.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/openai/openai-go"

	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/model"
)

// Options configure the OpenAI invokers. Fields intentionally mirror a
// minimal subset of the underlying API parameters; extend via functional
// options without breaking callers.
type Options struct {
	// Client overrides the default client (constructed from environment).
	Client *openai.Client

	// SpeechPerMillionChars maps TTS model id to microcents per 1M input
	// characters. Missing models report an unknown (nil) cost.
	SpeechPerMillionChars map[string]int64

	// ImagePerImage maps image model id to microcents per generated image,
	// keyed "model" or "model:quality:size" for quality/size specific
	// pricing with fallback to the bare model key.
	ImagePerImage map[string]int64
}

// defaultSpeechPricing covers the published TTS rates: tts-1 at $15 per 1M
// characters and tts-1-hd at $30 per 1M characters.
var defaultSpeechPricing = map[string]int64{
	"tts-1":    15_000_000,
	"tts-1-hd": 30_000_000,
}

// defaultImagePricing covers the published standard-quality 1024x1024 rates
// in microcents per image.
var defaultImagePricing = map[string]int64{
	"dall-e-2": 200_000,
	"dall-e-3": 400_000,
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		SpeechPerMillionChars: defaultSpeechPricing,
		ImagePerImage:         defaultImagePricing,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		client := openai.NewClient()
		opts.Client = &client
	}
	return opts
}

// NewSpeechInvoker returns an invoker synthesizing the given input text as
// speech. The instance's ModelID selects the TTS model; Params may carry
// "voice" (default alloy).
func NewSpeechInvoker(input string, optFns ...func(o *Options)) core.Invoker {
	opts := applyOptions(optFns)

	return func(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		voice := model.ParamString(inst, "voice", string(openai.AudioSpeechNewParamsVoiceAlloy))

		resp, err := opts.Client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
			Model:          openai.SpeechModel(inst.ModelID),
			Input:          input,
			Voice:          openai.AudioSpeechNewParamsVoice(voice),
			ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		})
		if err != nil {
			return core.InvocationResult{}, fmt.Errorf("openai speech: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return core.InvocationResult{}, fmt.Errorf("openai speech read: %w", err)
		}

		return core.InvocationResult{
			Data:           data,
			MIME:           "audio/mpeg",
			CostMicrocents: speechCost(opts.SpeechPerMillionChars, inst.ModelID, len(input)),
		}, nil
	}
}

// NewImageInvoker returns an invoker generating one image for the given
// prompt. Params may carry "size" (default 1024x1024) and "quality".
func NewImageInvoker(prompt string, optFns ...func(o *Options)) core.Invoker {
	opts := applyOptions(optFns)

	return func(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		size := model.ParamString(inst, "size", string(openai.ImageGenerateParamsSize1024x1024))
		quality := model.ParamString(inst, "quality", "")

		params := openai.ImageGenerateParams{
			Prompt:         prompt,
			Model:          openai.ImageModel(inst.ModelID),
			Size:           openai.ImageGenerateParamsSize(size),
			ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
			N:              openai.Int(1),
		}
		if quality != "" {
			params.Quality = openai.ImageGenerateParamsQuality(quality)
		}

		resp, err := opts.Client.Images.Generate(ctx, params)
		if err != nil {
			return core.InvocationResult{}, fmt.Errorf("openai image: %w", err)
		}
		if len(resp.Data) == 0 {
			return core.InvocationResult{}, fmt.Errorf("openai image: empty response")
		}

		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return core.InvocationResult{}, fmt.Errorf("openai image decode: %w", err)
		}

		return core.InvocationResult{
			Data:           data,
			MIME:           "image/png",
			CostMicrocents: imageCost(opts.ImagePerImage, inst.ModelID, quality, size),
		}, nil
	}
}

// NewTranscriptionInvoker returns an invoker transcribing the given audio
// bytes. Params may carry "language" as an ISO-639-1 hint.
func NewTranscriptionInvoker(audio []byte, filename string, optFns ...func(o *Options)) core.Invoker {
	opts := applyOptions(optFns)

	return func(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		params := openai.AudioTranscriptionNewParams{
			File:  openai.File(bytes.NewReader(audio), filename, "application/octet-stream"),
			Model: openai.AudioModel(inst.ModelID),
		}
		if lang := model.ParamString(inst, "language", ""); lang != "" {
			params.Language = openai.String(lang)
		}

		resp, err := opts.Client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return core.InvocationResult{}, fmt.Errorf("openai transcription: %w", err)
		}

		// per-second audio pricing needs the clip duration, which the API
		// does not return; cost stays unknown
		return core.InvocationResult{
			Data: []byte(resp.Text),
			MIME: "text/plain",
		}, nil
	}
}

func speechCost(pricing map[string]int64, modelID string, chars int) *int64 {
	perMillion, ok := pricing[modelID]
	if !ok {
		return nil
	}
	cost := perMillion * int64(chars) / 1_000_000
	return &cost
}

func imageCost(pricing map[string]int64, modelID, quality, size string) *int64 {
	if quality != "" && size != "" {
		if c, ok := pricing[modelID+":"+quality+":"+size]; ok {
			return &c
		}
	}
	if c, ok := pricing[modelID]; ok {
		return &c
	}
	return nil
}
