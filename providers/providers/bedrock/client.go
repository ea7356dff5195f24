//go:build bedrock
// +build bedrock

// Package bedrock implements the research provider backend for AWS
// Bedrock's Converse API. It is compiled behind the "bedrock" build tag
// so deployments that never touch AWS don't carry the SDK.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/providers/providers"
)

// Client implements core.AIClient over the Converse API. The embedded
// BaseClient's HTTP client is unused here — transport belongs to the AWS
// SDK — but its logging, defaults, and span plumbing still apply.
type Client struct {
	*providers.BaseClient
	bedrockClient *bedrockruntime.Client
	region        string
}

func NewClient(cfg aws.Config, region string, logger core.Logger) *Client {
	base := providers.NewBaseClient(30*time.Second, logger)
	base.DefaultModel = ModelClaudeSonnet
	base.DefaultMaxTokens = 1000

	return &Client{
		BaseClient:    base,
		bedrockClient: bedrockruntime.NewFromConfig(cfg),
		region:        region,
	}
}

// GenerateResponse implements core.AIClient via Converse.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()
	span.SetAttribute("ai.provider", "bedrock")
	span.SetAttribute("ai.region", c.region)

	options = c.ApplyDefaults(options)
	options.Model = resolveModel(options.Model)
	span.SetAttribute("ai.model", options.Model)

	c.LogRequest("bedrock", options.Model, prompt)
	startTime := time.Now()

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(options.Model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
	}
	if options.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: options.SystemPrompt},
		}
	}

	inference := &types.InferenceConfiguration{}
	configured := false
	if options.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(options.MaxTokens))
		configured = true
	}
	if options.Temperature > 0 {
		inference.Temperature = aws.Float32(options.Temperature)
		configured = true
	}
	if configured {
		input.InferenceConfig = inference
	}

	output, err := c.bedrockClient.Converse(ctx, input)
	if err != nil {
		c.LogError("bedrock", err)
		span.RecordError(err)
		return nil, fmt.Errorf("bedrock converse error: %w", err)
	}

	message, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		err := fmt.Errorf("unexpected output type from bedrock")
		span.RecordError(err)
		return nil, err
	}

	var content string
	for _, block := range message.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			content += text.Value
		}
	}
	if content == "" {
		err := fmt.Errorf("no text content in bedrock response")
		span.RecordError(err)
		return nil, err
	}

	result := &core.AIResponse{
		Content:  content,
		Model:    options.Model,
		Provider: "bedrock",
	}
	if output.Usage != nil {
		result.Usage = core.TokenUsage{
			PromptTokens:     int(aws.ToInt32(output.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(output.Usage.TotalTokens)),
		}
	}

	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)

	c.LogResponse(ctx, "bedrock", result.Model, result.Usage, time.Since(startTime))
	c.LogResponseContent("bedrock", result.Model, result.Content)

	return result, nil
}

// Embed generates an embedding via the Titan Embed model, letting a
// Bedrock-backed deployment serve the vector layer's EmbeddingService
// without a second vendor account.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(map[string]interface{}{"inputText": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	output, err := c.bedrockClient.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(ModelTitanEmbed),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke model error: %w", err)
	}

	var parsed struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	return parsed.Embedding, nil
}

// CreateAWSConfig loads AWS configuration for the given region, using an
// explicit credentials provider when supplied and the default chain
// (IAM role, env vars, shared credentials file) otherwise.
func CreateAWSConfig(ctx context.Context, region string, creds ...aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if len(creds) > 0 && creds[0] != nil {
		opts = append(opts, config.WithCredentialsProvider(creds[0]))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
