package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sirupsen/logrus"

	"docscan/config"
	"docscan/logging"
)

const contentTypeJSON = "application/json"

// ErrEmptyResponse is returned when the model reply carries no text.
var ErrEmptyResponse = errors.New("model returned no text content")

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}

// InvokeModelAPI is the part of the Bedrock runtime client used here.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes an Anthropic model hosted on Bedrock.
type Client struct {
	api              InvokeModelAPI
	modelID          string
	anthropicVersion string
	maxTokens        int
	timeout          time.Duration
}

// NewClient creates a Bedrock client for the configured region. Static credentials are used
// when both keys are configured; otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return NewClientWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg.Model), nil
}

// NewClientWithAPI creates a client around an existing runtime API implementation.
func NewClientWithAPI(api InvokeModelAPI, model config.ModelConfig) *Client {
	return &Client{
		api:              api,
		modelID:          model.ID,
		anthropicVersion: model.AnthropicVersion,
		maxTokens:        model.MaxTokens,
		timeout:          model.Timeout,
	}
}

// Analyze sends the image and the prompt as one user turn and returns the text of the first
// content block of the reply.
func (c *Client) Analyze(ctx context.Context, img Image, prompt string) (string, error) {
	body, err := json.Marshal(c.buildRequest(img, prompt))
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		return "", fmt.Errorf("invoking %s: %w", c.modelID, err)
	}

	var resp Response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	log.WithFields(logrus.Fields{
		"model":         c.modelID,
		"stop_reason":   resp.StopReason,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"elapsed":       time.Since(start).Round(time.Millisecond),
	}).Debug("Model invocation finished")

	if len(resp.Content) == 0 || resp.Content[0].Type != "text" {
		return "", ErrEmptyResponse
	}
	return resp.Content[0].Text, nil
}

func (c *Client) buildRequest(img Image, prompt string) Request {
	return Request{
		AnthropicVersion: c.anthropicVersion,
		MaxTokens:        c.maxTokens,
		Messages: []Message{
			{
				Role: "user",
				Content: []ContentBlock{
					{
						Type: "image",
						Source: &ImageSource{
							Type:      "base64",
							MediaType: img.MediaType,
							Data:      base64.StdEncoding.EncodeToString(img.Data),
						},
					},
					{Type: "text", Text: prompt},
				},
			},
		},
	}
}
