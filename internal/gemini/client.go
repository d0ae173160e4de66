// Package gemini is the boundary to the hosted multimodal model. It sends
// an image plus a fixed instructional prompt to Vertex AI and returns the
// model's raw text; interpreting that text is the reconciler's job.
package gemini

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/example/wastewise/internal/logging"
	"github.com/example/wastewise/internal/waste"
)

// Classifier is the subset of model functionality the scan flow consumes.
// Both methods fail only on transport, auth or quota problems; a reply the
// service cannot make sense of is still a successful call.
type Classifier interface {
	ClassifyImage(ctx context.Context, jpegData []byte) (string, error)
	EducationFacts(ctx context.Context, category waste.Category) (string, error)
}

// Config holds the Vertex AI connection settings.
type Config struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

// Client is a Classifier backed by the Vertex AI generative API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    Config
	logger *zap.Logger
}

// NewClient dials Vertex AI and configures the generative model.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)

	return &Client{
		client: client,
		model:  model,
		cfg:    cfg,
		logger: logger.Named("gemini"),
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ClassifyImage sends the normalized JPEG with the waste identification
// prompt and returns the model's raw text reply. The call is bounded by
// the configured timeout; there is no retry.
func (c *Client) ClassifyImage(ctx context.Context, jpegData []byte) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx,
		genai.Text(classificationPrompt()),
		genai.ImageData("image/jpeg", jpegData),
	)
	if err != nil {
		wrapped := logging.NewOperationError("gemini.classify_image", "", err)
		c.logger.Error("model call failed", zap.Error(wrapped))
		return "", wrapped
	}
	return extractText(resp)
}

// EducationFacts asks the model for supplementary facts about a category.
func (c *Client) EducationFacts(ctx context.Context, category waste.Category) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(educationPrompt(category)))
	if err != nil {
		wrapped := logging.NewOperationError("gemini.education_facts", "", err)
		c.logger.Error("model call failed", zap.Error(wrapped), zap.String("category", string(category)))
		return "", wrapped
	}
	return extractText(resp)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// extractText pulls the text of the first candidate out of a response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", logging.NewOperationError("gemini.extract_text", "", fmt.Errorf("no candidates in response"))
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", logging.NewOperationError("gemini.extract_text", "", fmt.Errorf("no content in response"))
	}
	return fmt.Sprintf("%v", candidate.Content.Parts[0]), nil
}
