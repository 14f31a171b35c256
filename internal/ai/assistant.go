package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// AssistantClient answers questions about lecture videos. Callers supply
// transcript context (context-window text plus semantic search hits); the
// client grounds the Gemini prompt on it.
type AssistantClient struct {
	apiKey       string
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *TokenCounter
	client       *genai.Client
	tier         string
}

type TokenCounter struct {
	mu              sync.Mutex
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewAssistantClient(apiKey string, tier string) (*AssistantClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	// Configure rate limits based on tier
	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			if to == gobreaker.StateOpen {
				log.Printf("ALERT: Gemini API circuit breaker opened - assistant degraded")
			}
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &AssistantClient{
		apiKey:       apiKey,
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		tokenCounter: &TokenCounter{},
		client:       client,
		tier:         tier,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// Answer generates a grounded response to a question about a lecture.
// transcriptContext holds text gathered near the student's playback position
// and the top semantic search hits, in that order.
func (ac *AssistantClient) Answer(ctx context.Context, question string, transcriptContext []string) (string, error) {
	tracer := otel.Tracer("assistant-client")
	ctx, span := tracer.Start(ctx, "assistant.answer")
	defer span.End()

	estimatedTokens := estimateTokens(question, transcriptContext)
	span.SetAttributes(
		attribute.Int("assistant.estimated_tokens", estimatedTokens),
		attribute.Int("assistant.context_parts", len(transcriptContext)),
	)

	if !ac.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("assistant.rate_limited", true))
		return "", errors.New("rate limit exceeded: wait before retry")
	}

	if err := ac.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("assistant.rate_limited", true))
		return "", err
	}

	result, err := ac.breaker.Execute(func() (interface{}, error) {
		model := ac.client.GenerativeModel("gemini-2.0-flash")
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)

		fullPrompt := buildLecturePrompt(question, transcriptContext)

		resp, err := model.GenerateContent(ctx, genai.Text(fullPrompt))
		if err != nil {
			span.SetAttributes(attribute.Bool("assistant.error", true))
			return nil, err
		}

		actualTokens := extractTokenUsage(resp)
		ac.tokenCounter.RecordUsage(actualTokens, 1)
		span.SetAttributes(attribute.Int("assistant.actual_tokens", actualTokens))

		return resp, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("assistant.circuit_breaker_open", true))
			return "I'm experiencing high demand right now. Please try again in a moment.", nil
		}
		return "", err
	}

	return responseText(result.(*genai.GenerateContentResponse)), nil
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()

	// Reset counters if time windows expired
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	limits := getRateLimits("free")

	if tc.minuteRequests+requests > limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// Rough estimation: 1 token ≈ 4 characters
func estimateTokens(prompt string, chunks []string) int {
	fullText := prompt
	for _, chunk := range chunks {
		fullText += "\n" + chunk
	}
	return len(fullText) / 4
}

// Extract token usage from Gemini response
func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	estimated := len(responseText(resp)) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

func responseText(resp *genai.GenerateContentResponse) string {
	total := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					total += string(text)
				}
			}
		}
	}
	return total
}

func buildLecturePrompt(question string, transcriptContext []string) string {
	if len(transcriptContext) == 0 {
		return question
	}

	contextStr := ""
	for i, part := range transcriptContext {
		contextStr += fmt.Sprintf("Transcript excerpt %d:\n%s\n\n", i+1, part)
	}

	return fmt.Sprintf("You are a teaching assistant. Based on the following lecture transcript excerpts:\n\n%s\nPlease answer this student question: %s", contextStr, question)
}

// Close the client
func (ac *AssistantClient) Close() error {
	if ac.client != nil {
		return ac.client.Close()
	}
	return nil
}
