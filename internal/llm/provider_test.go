package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"openai", KindOpenAI},
		{"Anthropic", KindAnthropic},
		{"google", KindGoogle},
		{"gemini", KindGoogle},
		{"anthropic-via-gateway", KindGateway},
		{" anthropic-gateway ", KindGateway},
		{"mock", KindMock},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("cohere"); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestKinds_ExcludesMock(t *testing.T) {
	for _, k := range Kinds() {
		if k == KindMock {
			t.Fatal("mock should not be offered to users")
		}
	}
	if len(Kinds()) != 4 {
		t.Fatalf("expected 4 kinds, got %d", len(Kinds()))
	}
}

func TestProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
		want error
	}{
		{"openai with key", ProviderConfig{Kind: KindOpenAI, APIKey: "k"}, nil},
		{"openai without key", ProviderConfig{Kind: KindOpenAI}, ErrMissingCredential},
		{"google without key", ProviderConfig{Kind: KindGoogle}, ErrMissingCredential},
		{"gateway without key", ProviderConfig{Kind: KindGateway}, nil},
		{"mock", ProviderConfig{Kind: KindMock}, nil},
		{"unknown", ProviderConfig{Kind: "cohere", APIKey: "k"}, ErrUnsupportedProvider},
		{"empty kind", ProviderConfig{}, ErrUnsupportedProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestProviderConfig_ValidateNamesEnvVar(t *testing.T) {
	err := ProviderConfig{Kind: KindAnthropic}.Validate()
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("expected hint naming ANTHROPIC_API_KEY, got %v", err)
	}
}

func TestProviderConfig_WithDefaults(t *testing.T) {
	cfg := ProviderConfig{Kind: KindOpenAI}.WithDefaults()
	if cfg.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", cfg.Model)
	}
	cfg = ProviderConfig{Kind: KindOpenAI, Model: "gpt-4o-mini"}.WithDefaults()
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("explicit model overwritten: %q", cfg.Model)
	}
}

func TestDiscoverAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	if got := DiscoverAPIKey(KindOpenAI); got != "sk-openai" {
		t.Errorf("openai key = %q", got)
	}
	if got := DiscoverAPIKey(KindGoogle); got != "g-key" {
		t.Errorf("google fallback key = %q", got)
	}
	if got := DiscoverAPIKey(KindGateway); got != "" {
		t.Errorf("gateway key = %q, want empty", got)
	}
}

func TestMockProvider_FIFO(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Text: "first", Usage: Usage{InputTokens: 1}},
		MockResponse{Text: "second"},
	)

	resp1, err := mock.Generate(context.Background(), UserPrompt("a", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp1.Text != "first" || resp1.Usage.InputTokens != 1 {
		t.Errorf("unexpected first response %+v", resp1)
	}

	resp2, _ := mock.Generate(context.Background(), UserPrompt("b", 10))
	if resp2.Text != "second" {
		t.Errorf("unexpected second response %q", resp2.Text)
	}

	if _, err := mock.Generate(context.Background(), UserPrompt("c", 10)); err == nil {
		t.Error("expected error once the queue is drained")
	}
	if mock.CallCount() != 3 {
		t.Errorf("call count = %d, want 3", mock.CallCount())
	}
}

func TestMockProvider_Error(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})
	_, err := mock.Generate(context.Background(), UserPrompt("a", 10))
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider("always")
	for i := 0; i < 3; i++ {
		resp, err := p.Generate(context.Background(), UserPrompt("x", 10))
		if err != nil || resp.Text != "always" {
			t.Fatalf("call %d: got %v, %v", i, resp, err)
		}
	}
	p.AddResponse(MockResponse{Text: "queued"})
	resp, _ := p.Generate(context.Background(), UserPrompt("x", 10))
	if resp.Text != "queued" {
		t.Errorf("queued response not served first: %q", resp.Text)
	}
}

func TestRowContext(t *testing.T) {
	if _, ok := RowFrom(context.Background()); ok {
		t.Fatal("expected no row on a bare context")
	}
	ref, ok := RowFrom(WithRow(context.Background(), "run", 7))
	if !ok || ref.RunID != "run" || ref.Row != 7 {
		t.Fatalf("unexpected row ref %+v (%v)", ref, ok)
	}
}

func TestLoggingProvider(t *testing.T) {
	events := &recordingEvents{}
	mock := NewMockProvider(
		MockResponse{Text: "ok", Usage: Usage{InputTokens: 4, OutputTokens: 2}},
		MockResponse{Err: &ErrProviderUnavailable{StatusCode: 500}},
	)
	p := WithLogging(mock, KindOpenAI, events, nil)

	ctx := WithRow(context.Background(), "run-1", 0)
	if _, err := p.Generate(ctx, UserPrompt("first", 64)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(WithRow(context.Background(), "run-1", 1), UserPrompt("second", 64)); err == nil {
		t.Fatal("expected error to pass through")
	}

	if len(events.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events.events))
	}
	ok, bad := events.events[0], events.events[1]
	if !ok.Success || ok.InputTokens != 4 || ok.OutputTokens != 2 || ok.ResponseBody != "ok" {
		t.Errorf("unexpected success event %+v", ok)
	}
	if ok.Provider != "openai" || ok.Model != "mock" {
		t.Errorf("unexpected provider/model %q/%q", ok.Provider, ok.Model)
	}
	if !strings.Contains(ok.RequestBody, "first") || !strings.Contains(ok.RequestBody, "[max_tokens: 64]") {
		t.Errorf("unexpected request body %q", ok.RequestBody)
	}
	if bad.Success || bad.Row != 1 || bad.ErrorMessage == "" {
		t.Errorf("unexpected failure event %+v", bad)
	}
}

func TestLoggingProvider_StoreFailureIgnored(t *testing.T) {
	events := &recordingEvents{err: errors.New("disk full")}
	p := WithLogging(NewStaticProvider("ok"), KindAnthropic, events, nil)

	resp, err := p.Generate(WithRow(context.Background(), "r", 0), UserPrompt("x", 10))
	if err != nil || resp.Text != "ok" {
		t.Fatalf("store failure leaked into the call: %v, %v", resp, err)
	}
}

func TestLookupOption(t *testing.T) {
	opt, ok := LookupOption("Gemini Flash (Google)")
	if !ok || opt.Kind != KindGoogle || opt.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected option %+v (%v)", opt, ok)
	}
	if _, ok := LookupOption("nope"); ok {
		t.Fatal("expected no match")
	}
	for _, o := range Catalog {
		if _, err := ParseKind(string(o.Kind)); err != nil {
			t.Errorf("catalog entry %q has bad kind: %v", o.Label, err)
		}
	}
}

func TestCatalogModelsAreSentUnchanged(t *testing.T) {
	aliases := map[Kind]map[string]string{
		KindOpenAI:    openaiModels,
		KindAnthropic: anthropicModels,
		KindGoogle:    geminiModels,
		KindGateway:   gatewayModels,
	}
	for _, o := range Catalog {
		if got := resolveModel(o.Model, aliases[o.Kind]); got != o.Model {
			t.Errorf("%s: model %q is sent as %q", o.Label, o.Model, got)
		}
	}
	for k, m := range defaultModels {
		if got := resolveModel(m, aliases[k]); got != m {
			t.Errorf("default model for %s: %q is sent as %q", k, m, got)
		}
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("claude-3-opus-20240229")
	if c == nil {
		t.Fatal("expected pricing for claude-3-opus-20240229")
	}
	if got := c.Cost(1_000_000, 1_000_000); got != 90 {
		t.Errorf("cost = %v, want 90", got)
	}
	if LookupCost("unknown-model") != nil {
		t.Error("expected no pricing for unknown model")
	}
}
