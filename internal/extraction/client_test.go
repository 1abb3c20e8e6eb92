package extraction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/monty-notes/inkwell/internal/providers"
)

// stubProvider returns canned responses and records the requests it saw.
type stubProvider struct {
	responses []*providers.Response
	err       error
	requests  []providers.Request
	calls     int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req providers.Request) (*providers.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return resp, nil
}

func textResponse(text string, prompt, completion int) *providers.Response {
	return &providers.Response{
		Text: text,
		Usage: providers.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
}

func TestExtractUsesDefaultPromptWhenEmpty(t *testing.T) {
	stub := &stubProvider{responses: []*providers.Response{textResponse("plain text", 100, 50)}}
	client := NewClient(stub, WithModel("test-model"))

	if _, err := client.Extract(context.Background(), []byte("img"), "image/jpeg", ""); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if stub.requests[0].Prompt != DefaultPrompt {
		t.Error("empty prompt should select DefaultPrompt")
	}
	if stub.requests[0].Model != "test-model" {
		t.Errorf("model = %q", stub.requests[0].Model)
	}
	if stub.requests[0].Temperature != 0.3 {
		t.Errorf("temperature = %v, want the low default 0.3", stub.requests[0].Temperature)
	}
	if stub.requests[0].MaxTokens != 2000 {
		t.Errorf("max tokens = %d, want the bounded default 2000", stub.requests[0].MaxTokens)
	}
}

func TestExtractCustomPromptOverrides(t *testing.T) {
	stub := &stubProvider{responses: []*providers.Response{textResponse("x", 1, 1)}}
	client := NewClient(stub)

	if _, err := client.Extract(context.Background(), []byte("img"), "image/jpeg", "my prompt"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if stub.requests[0].Prompt != "my prompt" {
		t.Errorf("prompt = %q, want full override", stub.requests[0].Prompt)
	}
}

func TestExtractWrapsProviderFailure(t *testing.T) {
	stub := &stubProvider{err: errors.New("connection refused")}
	client := NewClient(stub)

	_, err := client.Extract(context.Background(), []byte("img"), "image/jpeg", "")
	if err == nil {
		t.Fatal("expected error")
	}

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %T", err)
	}
}

func TestSessionCostAccumulatesMonotonically(t *testing.T) {
	stub := &stubProvider{responses: []*providers.Response{textResponse("body", 200_000, 100_000)}}
	client := NewClient(stub, WithRates(Rates{InputPerMTok: 2.50, OutputPerMTok: 10.00}))

	// Each call: 0.2*2.50 + 0.1*10.00 = 1.50
	perCall := 1.50

	prev := 0.0
	for i := 1; i <= 5; i++ {
		record, err := client.Extract(context.Background(), []byte("img"), "image/jpeg", "")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}

		expected := perCall * float64(i)
		if math.Abs(client.SessionCost()-expected) > 1e-9 {
			t.Errorf("session cost after %d calls = %v, want %v", i, client.SessionCost(), expected)
		}
		if client.SessionCost() < prev {
			t.Error("session cost decreased")
		}
		prev = client.SessionCost()

		if math.Abs(record.Usage.EstimatedCost-perCall) > 1e-9 {
			t.Errorf("estimated_cost = %v, want %v", record.Usage.EstimatedCost, perCall)
		}
		if math.Abs(record.Usage.RunningSessionCost-expected) > 1e-9 {
			t.Errorf("running_session_cost = %v, want %v", record.Usage.RunningSessionCost, expected)
		}
	}
}

func TestExtractRecordCarriesUsage(t *testing.T) {
	body := `{"transcription": "Hello", "notes": ""}`
	stub := &stubProvider{responses: []*providers.Response{textResponse(fmt.Sprintf("```json\n%s\n```", body), 1234, 567)}}
	client := NewClient(stub, WithModel("gpt-4o"))

	record, err := client.Extract(context.Background(), []byte("img"), "image/jpeg", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if record.Transcription != "Hello" {
		t.Errorf("transcription = %q", record.Transcription)
	}
	if record.Model != "gpt-4o" {
		t.Errorf("model = %q", record.Model)
	}
	if record.Usage.PromptTokens != 1234 || record.Usage.CompletionTokens != 567 || record.Usage.TotalTokens != 1801 {
		t.Errorf("usage = %+v", record.Usage)
	}
	if record.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestExtractFallbackStillAccountsCost(t *testing.T) {
	stub := &stubProvider{responses: []*providers.Response{textResponse("not json at all", 100_000, 0)}}
	client := NewClient(stub)

	record, err := client.Extract(context.Background(), []byte("img"), "image/jpeg", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if record.Notes != fallbackNote {
		t.Errorf("notes = %q, want fallback note", record.Notes)
	}
	if record.Usage.EstimatedCost <= 0 {
		t.Error("fallback record must still carry the call cost")
	}
	if client.SessionCost() <= 0 {
		t.Error("fallback call must still add to session cost")
	}
}
