package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"docscan/config"
)

type fakeRuntime struct {
	input    *bedrockruntime.InvokeModelInput
	deadline bool
	body     []byte
	err      error
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func testModel() config.ModelConfig {
	return config.ModelConfig{
		ID:               "anthropic.claude-3-5-sonnet-20240620-v1:0",
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        8000,
		Timeout:          time.Minute,
	}
}

func replyBody(t *testing.T, resp Response) []byte {
	t.Helper()
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshaling response: %v", err)
	}
	return body
}

func TestAnalyze_Success(t *testing.T) {
	fake := &fakeRuntime{body: replyBody(t, Response{
		Role:       "assistant",
		Content:    []ContentBlock{{Type: "text", Text: `{"תיאור המסמך": "תעודת זהות"}`}},
		StopReason: "end_turn",
	})}

	client := NewClientWithAPI(fake, testModel())
	imageData := []byte("fake jpeg bytes")

	text, err := client.Analyze(context.Background(), Image{MediaType: "image/png", Data: imageData}, "describe the document")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if text != `{"תיאור המסמך": "תעודת זהות"}` {
		t.Errorf("unexpected text %q", text)
	}

	if aws.ToString(fake.input.ModelId) != testModel().ID {
		t.Errorf("unexpected model id %q", aws.ToString(fake.input.ModelId))
	}
	if aws.ToString(fake.input.ContentType) != "application/json" || aws.ToString(fake.input.Accept) != "application/json" {
		t.Error("expected JSON content type and accept headers")
	}
	if !fake.deadline {
		t.Error("expected the call to carry a deadline")
	}

	var req Request
	if err := json.Unmarshal(fake.input.Body, &req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	if req.AnthropicVersion != "bedrock-2023-05-31" || req.MaxTokens != 8000 {
		t.Errorf("unexpected request header fields: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", req.Messages)
	}

	content := req.Messages[0].Content
	if len(content) != 2 {
		t.Fatalf("expected image and text blocks, got %d", len(content))
	}
	if content[0].Type != "image" || content[0].Source == nil {
		t.Fatalf("expected image block first, got %+v", content[0])
	}
	if content[0].Source.Type != "base64" || content[0].Source.MediaType != "image/png" {
		t.Errorf("unexpected image source %+v", content[0].Source)
	}
	if content[0].Source.Data != base64.StdEncoding.EncodeToString(imageData) {
		t.Error("image data was not base64-encoded")
	}
	if content[1].Type != "text" || content[1].Text != "describe the document" {
		t.Errorf("unexpected text block %+v", content[1])
	}
}

func TestAnalyze_InvokeError(t *testing.T) {
	fake := &fakeRuntime{err: errors.New("AccessDeniedException: not authorized")}
	client := NewClientWithAPI(fake, testModel())

	_, err := client.Analyze(context.Background(), Image{MediaType: "image/jpeg", Data: []byte("x")}, "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "AccessDeniedException") {
		t.Errorf("expected underlying error in message, got: %v", err)
	}
}

func TestAnalyze_EmptyContent(t *testing.T) {
	fake := &fakeRuntime{body: replyBody(t, Response{Role: "assistant"})}
	client := NewClientWithAPI(fake, testModel())

	_, err := client.Analyze(context.Background(), Image{MediaType: "image/jpeg", Data: []byte("x")}, "p")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAnalyze_MalformedBody(t *testing.T) {
	fake := &fakeRuntime{body: []byte("not json")}
	client := NewClientWithAPI(fake, testModel())

	_, err := client.Analyze(context.Background(), Image{MediaType: "image/jpeg", Data: []byte("x")}, "p")
	if err == nil || !strings.Contains(err.Error(), "unmarshaling response") {
		t.Fatalf("expected unmarshal error, got %v", err)
	}
}

func TestNewClient_StaticCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))

	cfg := &config.Config{
		AWS: config.AWSConfig{
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
			Region:          "us-east-1",
		},
		Model: testModel(),
	}

	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.modelID != testModel().ID {
		t.Errorf("unexpected model id %q", client.modelID)
	}
}
