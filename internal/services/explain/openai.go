package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/metrics"
	"invoice-reconciliation-backend/internal/models"

	"go.uber.org/zap"
)

// OpenAIExplainer asks the AI collaborator for a rationale with a bounded
// timeout, falling back to the deterministic template on any failure.
type OpenAIExplainer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	fallback   TemplateExplainer
	log        *zap.Logger
}

func NewOpenAIExplainer(cfg config.AIConfig, log *zap.Logger) *OpenAIExplainer {
	return &OpenAIExplainer{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

func (e *OpenAIExplainer) Explain(ctx context.Context, invoice *models.Invoice, tx *models.BankTransaction, score int) string {
	text, err := e.complete(ctx, buildPrompt(invoice, tx, score))
	if err != nil {
		e.log.Warn("AI explanation failed, using deterministic fallback", zap.Error(err))
		metrics.AIFallbacks.Inc()
		return e.fallback.Explain(ctx, invoice, tx, score)
	}
	return text
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *OpenAIExplainer) complete(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(chatCompletionRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a financial reconciliation assistant."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("OpenAI API returned no content")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func buildPrompt(invoice *models.Invoice, tx *models.BankTransaction, score int) string {
	return fmt.Sprintf(`You are analyzing a potential match between an invoice and a bank transaction for reconciliation purposes.

Invoice:
- Amount: %s %s
- Due Date: %s
- Invoice Number: %s
- Description: %s

Bank Transaction:
- Amount: %s %s
- Transaction Date: %s
- Description: %s

Match Score: %d/100

Provide a brief explanation (2-4 sentences) of why this match was proposed and whether it appears to be a valid match. Be concise and focus on the key matching factors.`,
		invoice.Amount, invoice.Currency,
		invoice.DueDate.Format("2006-01-02"),
		orNotProvided(invoice.InvoiceNumber),
		orNotProvided(invoice.Description),
		tx.Amount, tx.Currency,
		tx.TransactionDate.Format("2006-01-02"),
		orNotProvided(tx.Description),
		score,
	)
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}
