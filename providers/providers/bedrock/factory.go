//go:build bedrock
// +build bedrock

package bedrock

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/relabs-io/vantage/core"
	ai "github.com/relabs-io/vantage/providers"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory builds Bedrock clients through the AWS credential chain.
type Factory struct{}

func (f *Factory) Name() string { return "bedrock" }

func (f *Factory) Description() string {
	return "AWS Bedrock unified access to Claude, Llama, Titan and Mistral models"
}

func (f *Factory) Priority() int { return 60 }

func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	ctx := context.Background()
	region := resolveRegion(config)

	var awsCfg aws.Config
	var err error
	if accessKey, secretKey, ok := explicitCredentials(config); ok {
		sessionToken, _ := config.Extra["aws_session_token"].(string)
		provider := credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
		awsCfg, err = CreateAWSConfig(ctx, region, provider)
	} else {
		awsCfg, err = CreateAWSConfig(ctx, region)
	}
	if err != nil {
		// Registration must not fail just because AWS isn't configured;
		// the error surfaces on first use instead.
		return &errorClient{err: err}
	}

	logger := config.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	logger.Info("Bedrock provider initialized", map[string]interface{}{
		"operation": "ai_provider_init",
		"provider":  "bedrock",
		"region":    region,
		"model":     config.Model,
	})

	client := NewClient(awsCfg, region, logger)

	if config.MaxRetries > 0 {
		client.MaxRetries = config.MaxRetries
	}
	if config.Model != "" {
		client.DefaultModel = config.Model
	}
	if config.Temperature > 0 {
		client.DefaultTemperature = config.Temperature
	}
	if config.MaxTokens > 0 {
		client.DefaultMaxTokens = config.MaxTokens
	}
	if config.Telemetry != nil {
		client.Telemetry = config.Telemetry
	}

	return client
}

// DetectEnvironment reports availability when any leg of the AWS
// credential chain looks present. Running inside AWS gets a priority
// bump: the local credential chain there is both free and fast.
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("AWS_EXECUTION_ENV") != "" ||
		os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" ||
		os.Getenv("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI") != "" {
		return f.Priority() + 10, true
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" && os.Getenv("AWS_SECRET_ACCESS_KEY") != "" {
		return f.Priority(), true
	}
	if os.Getenv("AWS_PROFILE") != "" {
		return f.Priority(), true
	}
	if home, err := os.UserHomeDir(); err == nil {
		if _, err := os.Stat(home + "/.aws/credentials"); err == nil {
			return f.Priority(), true
		}
	}
	return 0, false
}

func resolveRegion(config *ai.AIConfig) string {
	if region, ok := config.Extra["region"].(string); ok && region != "" {
		return region
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}

func explicitCredentials(config *ai.AIConfig) (accessKey, secretKey string, ok bool) {
	accessKey, _ = config.Extra["aws_access_key_id"].(string)
	secretKey, _ = config.Extra["aws_secret_access_key"].(string)
	return accessKey, secretKey, accessKey != "" && secretKey != ""
}

// errorClient defers an AWS configuration failure to first use.
type errorClient struct {
	err error
}

func (e *errorClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	return nil, e.err
}
