package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultChatModel       = "gpt-4o-mini"
	defaultTranscribeModel = goopenai.Whisper1
	defaultSpeechModel     = "tts-1"
	defaultSpeechVoice     = "alloy"
	defaultRate            = "30-M"
	limiterKey             = "triage:openai"
)

// Client implements providers.TriageAssistant on the OpenAI API.
// The API key never leaves this process.
type Client struct {
	api             *goopenai.Client
	chatModel       string
	transcribeModel string
	speechModel     string
	speechVoice     string
	limiter         *limiter.Limiter
}

var _ providers.TriageAssistant = (*Client)(nil)

// NewClient creates a new OpenAI triage client.
func NewClient(cfg *config.TriageConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	rate, err := limiter.NewRateFromFormatted(orDefault(cfg.RateLimit, defaultRate))
	if err != nil {
		return nil, fmt.Errorf("invalid triage rate limit %q: %w", cfg.RateLimit, err)
	}

	return &Client{
		api:             goopenai.NewClientWithConfig(apiCfg),
		chatModel:       orDefault(cfg.ChatModel, defaultChatModel),
		transcribeModel: orDefault(cfg.TranscribeModel, defaultTranscribeModel),
		speechModel:     orDefault(cfg.SpeechModel, defaultSpeechModel),
		speechVoice:     orDefault(cfg.SpeechVoice, defaultSpeechVoice),
		limiter:         limiter.New(memory.NewStore(), rate),
	}, nil
}

// Chat answers a symptom question, optionally with a photo
func (c *Client) Chat(ctx context.Context, query entities.TriageQuery) (*entities.TriageReply, error) {
	if err := c.wait(ctx, c.chatModel); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    buildChatMessages(query),
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		recordOpenAIMetric(ctx, "chat", c.chatModel, statusOf(err), time.Since(start), err)
		return nil, wrapAPIError("chat", err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		err := errors.New("openai response missing output text")
		recordOpenAIMetric(ctx, "chat", c.chatModel, http.StatusOK, time.Since(start), err)
		return nil, err
	}

	recordOpenAIMetric(ctx, "chat", c.chatModel, http.StatusOK, time.Since(start), nil)
	return &entities.TriageReply{Text: text}, nil
}

// Transcribe runs speech recognition on a recorded voice note
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*entities.Transcript, error) {
	if len(audio) == 0 {
		return nil, errors.New("audio is required")
	}
	if err := c.wait(ctx, c.transcribeModel); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: "voice-note.webm",
		Reader:   bytes.NewReader(audio),
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		recordOpenAIMetric(ctx, "transcribe", c.transcribeModel, statusOf(err), time.Since(start), err)
		return nil, wrapAPIError("transcription", err)
	}

	recordOpenAIMetric(ctx, "transcribe", c.transcribeModel, http.StatusOK, time.Since(start), nil)
	return &entities.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: languageCode(resp.Language),
	}, nil
}

// Speak synthesizes text as mp3 audio
func (c *Client) Speak(ctx context.Context, text, language string) (*entities.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}
	if err := c.wait(ctx, c.speechModel); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          goopenai.SpeechVoice(c.speechVoice),
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	})
	if err != nil {
		recordOpenAIMetric(ctx, "speech", c.speechModel, statusOf(err), time.Since(start), err)
		return nil, wrapAPIError("speech", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		recordOpenAIMetric(ctx, "speech", c.speechModel, http.StatusOK, time.Since(start), err)
		return nil, fmt.Errorf("failed to read synthesized speech: %w", err)
	}

	recordOpenAIMetric(ctx, "speech", c.speechModel, http.StatusOK, time.Since(start), nil)
	log.Debug().Str("language", language).Int("bytes", len(audio)).Msg("Synthesized triage speech")
	return &entities.Speech{Audio: audio, Format: "mp3"}, nil
}

// wait blocks until the shared request budget allows another call
func (c *Client) wait(ctx context.Context, model string) error {
	waitStart := time.Now()
	for {
		lctx, err := c.limiter.Get(ctx, limiterKey)
		if err != nil {
			// The memory store does not fail; a broken limiter must not block triage
			return nil
		}
		if !lctx.Reached {
			if waited := time.Since(waitStart); waited > time.Millisecond {
				recordOpenAIRateLimitWait(ctx, model, waited)
			}
			return nil
		}

		timer := time.NewTimer(time.Until(time.Unix(lctx.Reset, 0)) + 10*time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			recordOpenAIMetric(ctx, "rate_limit", model, 0, time.Since(waitStart), ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func statusOf(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func wrapAPIError(op string, err error) error {
	status := statusOf(err)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: openai %s request failed with status %d", providers.ErrTriageUnavailable, op, status)
	}
	if status > 0 {
		return fmt.Errorf("openai %s request failed with status %d: %w", op, status, err)
	}
	return fmt.Errorf("openai %s request failed: %w", op, err)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

type openAIMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	openaiMetricsOnce sync.Once
	openaiMetricsInit bool
	openaiMetrics     openAIMetrics
)

func ensureOpenAIMetrics() {
	openaiMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/zatekoja/firstresponder/backend/triage")

		requestCount, err := meter.Int64Counter(
			"ai.openai.request.count",
			metric.WithDescription("Number of OpenAI requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.openai.request.duration",
			metric.WithDescription("OpenAI request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.openai.request.errors",
			metric.WithDescription("Number of OpenAI request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.openai.rate_limit.wait",
			metric.WithDescription("Time spent waiting for OpenAI rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		openaiMetrics = openAIMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
		openaiMetricsInit = true
	})
}

func recordOpenAIMetric(ctx context.Context, operation, model string, statusCode int, duration time.Duration, err error) {
	ensureOpenAIMetrics()
	if !openaiMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.operation", operation),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	openaiMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	openaiMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		openaiMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordOpenAIRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureOpenAIMetrics()
	if !openaiMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	openaiMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
