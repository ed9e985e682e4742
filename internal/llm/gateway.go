package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const defaultAnthropicVersion = "bedrock-2023-05-31"

// gatewayModels maps short aliases to gateway model IDs.
var gatewayModels = map[string]string{
	"opus":   "anthropic.claude-3-opus-20240229-v1:0",
	"sonnet": "anthropic.claude-3-sonnet-20240229-v1:0",
	"haiku":  "anthropic.claude-3-haiku-20240307-v1:0",
}

// GatewayClient is the slice of the managed gateway API the provider uses.
// *bedrockruntime.Client satisfies it; tests substitute a stub.
type GatewayClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// NewGatewayClient builds a gateway client from the process-wide credential
// chain (environment, shared config, instance role).
func NewGatewayClient(ctx context.Context, cfg GatewayConfig) (*bedrockruntime.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load gateway credentials: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

// GatewayProvider implements Provider by invoking Anthropic models through
// the managed gateway's raw model-invocation endpoint.
type GatewayProvider struct {
	client  GatewayClient
	model   string
	version string
}

// NewGatewayProvider creates a gateway provider around an existing client.
func NewGatewayProvider(client GatewayClient, model string, cfg GatewayConfig) (*GatewayProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("gateway client not configured: %w", ErrMissingCredential)
	}
	version := cfg.AnthropicVersion
	if version == "" {
		version = defaultAnthropicVersion
	}
	return &GatewayProvider{
		client:  client,
		model:   resolveModel(model, gatewayModels),
		version: version,
	}, nil
}

type gatewayRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	Messages         []gatewayMessage `json:"messages"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      *float64         `json:"temperature,omitempty"`
}

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// gatewayResponseSchema is the minimum body shape the provider can read text from.
var gatewayResponseSchema = &Schema{
	Name: "gateway-anthropic-response",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"content"},
		"properties": map[string]any{
			"content": map[string]any{
				"type":     "array",
				"minItems": 1,
				"prefixItems": []any{
					map[string]any{
						"type":     "object",
						"required": []any{"text"},
						"properties": map[string]any{
							"text": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	},
}

func (p *GatewayProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body := gatewayRequest{
		AnthropicVersion: p.version,
		MaxTokens:        req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, gatewayMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.Temperature > 0 {
		body.Temperature = aws.Float64(req.Temperature)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, mapGatewayError(err)
	}

	if err := validateResponse(gatewayResponseSchema, out.Body); err != nil {
		return nil, err
	}

	var decoded gatewayResponse
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return nil, &ErrInvalidResponse{Content: string(out.Body), Err: err}
	}

	model := decoded.Model
	if model == "" {
		model = p.model
	}

	return &Response{
		Text: decoded.Content[0].Text,
		Usage: Usage{
			InputTokens:  decoded.Usage.InputTokens,
			OutputTokens: decoded.Usage.OutputTokens,
			TotalTokens:  decoded.Usage.InputTokens + decoded.Usage.OutputTokens,
		},
		Model:      model,
		StopReason: mapAnthropicStopReason(decoded.StopReason),
	}, nil
}

func (p *GatewayProvider) ModelID() string {
	return p.model
}

func mapGatewayError(err error) error {
	var throttled *types.ThrottlingException
	if errors.As(err, &throttled) {
		return &ErrRateLimit{Err: err}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == http.StatusTooManyRequests {
			return &ErrRateLimit{Err: err}
		}
		return &ErrProviderUnavailable{StatusCode: respErr.HTTPStatusCode(), Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
