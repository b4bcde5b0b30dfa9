package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ollama "github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/config"
	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/pkg/logger"
)

// CallRequest is the unified request shape routed to whichever vendor owns
// the model.
type CallRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	Images       []ImageSource
	JSONMode     bool
	// MaxTokens is advisory. The OpenAI-compatible family always sends the
	// model's documented output ceiling instead, preferring complete output
	// over cost control.
	MaxTokens int
	// AutoFallback opts in to a single same-family downgrade retry when the
	// top-tier Anthropic model fails on its output-length limit.
	AutoFallback bool
	// Engine and Module tag the audit log row.
	Engine string
	Module string
	LeadID *uint
}

// CallResponse is the normalized vendor response.
type CallResponse struct {
	Content  string     `json:"content"`
	Usage    TokenUsage `json:"usage"`
	CostUSD  float64    `json:"cost_usd"`
	Model    string     `json:"model"`
	Provider Provider   `json:"provider"`
	// Cached is a debug-only flag; a cache hit is otherwise
	// indistinguishable from a fresh call.
	Cached bool `json:"-"`
}

// Caller is the invocation interface the orchestration loop depends on.
type Caller interface {
	Call(ctx context.Context, req *CallRequest) (*CallResponse, error)
}

// lengthLimitError marks a vendor failure caused by exhausting the output
// budget, the only failure class eligible for the opt-in downgrade retry.
type lengthLimitError struct {
	model string
}

func (e *lengthLimitError) Error() string {
	return fmt.Sprintf("model %s hit its output length limit before producing text", e.model)
}

// AIService is the unified AI invocation layer. Vendor clients are
// constructed once at startup from config; a provider with no credential
// fails with a configuration error on first use.
type AIService struct {
	cfg     *config.AIConfig
	cache   ResponseCache
	callLog *AICallLogService
	images  *ImagePreprocessor

	openaiClient    *openai.Client
	xaiClient       *openai.Client
	anthropicClient *anthropic.Client
	geminiClient    *genai.Client
	ollamaClient    *ollama.Client
}

func NewAIService(db *gorm.DB, cfg *config.Config) *AIService {
	s := &AIService{
		cfg:     &cfg.AI,
		cache:   NewResponseCache(db, &cfg.Redis, &cfg.AI.Cache),
		callLog: NewAICallLogService(db),
		images:  NewImagePreprocessor(),
	}

	if cfg.AI.OpenAI.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.AI.OpenAI.APIKey)
		if cfg.AI.OpenAI.BaseURL != "" {
			clientConfig.BaseURL = cfg.AI.OpenAI.BaseURL
		}
		s.openaiClient = openai.NewClientWithConfig(clientConfig)
	}

	if cfg.AI.XAI.APIKey != "" {
		// xAI speaks the OpenAI wire format on its own endpoint
		clientConfig := openai.DefaultConfig(cfg.AI.XAI.APIKey)
		clientConfig.BaseURL = cfg.AI.XAI.BaseURL
		s.xaiClient = openai.NewClientWithConfig(clientConfig)
	}

	if cfg.AI.Anthropic.APIKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(cfg.AI.Anthropic.APIKey))
		s.anthropicClient = &client
	}

	if cfg.AI.Gemini.APIKey != "" {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.AI.Gemini.APIKey,
		})
		if err != nil {
			logger.Warnf("[AI] Gemini client init failed: %v", err)
		} else {
			s.geminiClient = client
		}
	}

	if cfg.AI.Ollama.BaseURL != "" {
		if u, err := url.Parse(cfg.AI.Ollama.BaseURL); err == nil {
			s.ollamaClient = ollama.NewClient(u, http.DefaultClient)
		}
	}

	return s
}

// Call routes a unified request to the owning vendor, consulting the cache
// for image-free requests and recording every completed call in the audit
// log.
func (s *AIService) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	caps, err := CapsForModel(req.Model)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	// Vision calls bypass the cache entirely: image bytes are not part of
	// the fingerprint and would produce false hits.
	var fingerprint string
	if len(req.Images) == 0 && s.cache != nil {
		fingerprint = Fingerprint(req.Model, req.SystemPrompt, req.UserPrompt, req.Temperature, req.JSONMode)
		if cached, ok := s.cache.Get(ctx, fingerprint); ok {
			resp := &CallResponse{
				Content:  cached.Content,
				Usage:    cached.Usage,
				CostUSD:  cached.CostUSD,
				Model:    cached.Model,
				Provider: Provider(cached.Provider),
				Cached:   true,
			}
			logger.Debugf("[AI] Cache hit for %s (%s...)", req.Model, fingerprint[:8])
			s.recordCall(req, resp, nil, time.Since(start))
			s.debugDump(req, resp, nil, time.Since(start))
			return resp, nil
		}
	}

	parts, err := s.prepareImages(ctx, req.Images)
	if err != nil {
		return nil, err
	}

	resp, err := s.dispatch(ctx, caps, req, parts)

	if err != nil && req.AutoFallback {
		if smaller := downgradeFor(req.Model, err); smaller != "" {
			logger.Warnf("[AI] %s hit length limit, retrying once with %s", req.Model, smaller)
			retryReq := *req
			retryReq.Model = smaller
			retryReq.AutoFallback = false
			if retryCaps, capsErr := CapsForModel(smaller); capsErr == nil {
				resp, err = s.dispatch(ctx, retryCaps, &retryReq, parts)
			}
		}
	}

	duration := time.Since(start)

	if err != nil {
		s.recordCall(req, nil, err, duration)
		s.debugDump(req, nil, err, duration)
		return nil, err
	}

	resp.CostUSD = CalculateCost(resp.Model, resp.Usage)

	if fingerprint != "" {
		s.cache.Put(ctx, fingerprint, &CachedResponse{
			Content:  resp.Content,
			Usage:    resp.Usage,
			CostUSD:  resp.CostUSD,
			Model:    resp.Model,
			Provider: string(resp.Provider),
		})
	}

	s.recordCall(req, resp, nil, duration)
	s.debugDump(req, resp, nil, duration)
	return resp, nil
}

// downgradeFor returns the smaller same-family model when the error is a
// length-limit failure on a model that has a registered downgrade.
func downgradeFor(model string, err error) string {
	var lle *lengthLimitError
	if !errors.As(err, &lle) {
		return ""
	}
	return anthropicDowngrades[model]
}

func (s *AIService) prepareImages(ctx context.Context, sources []ImageSource) ([]ImagePart, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	var parts []ImagePart
	for _, src := range sources {
		prepared, err := s.images.Prepare(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("prepare image: %w", err)
		}
		// Sections stay in top-to-bottom order when flattened
		parts = append(parts, prepared...)
	}
	return parts, nil
}

// dispatch calls the provider-specific function for the model's vendor.
func (s *AIService) dispatch(ctx context.Context, caps ModelCaps, req *CallRequest, parts []ImagePart) (*CallResponse, error) {
	switch caps.Provider {
	case ProviderOpenAI:
		return s.callOpenAICompatible(ctx, s.openaiClient, ProviderOpenAI, caps, req, parts)
	case ProviderXAI:
		return s.callOpenAICompatible(ctx, s.xaiClient, ProviderXAI, caps, req, parts)
	case ProviderAnthropic:
		return s.callAnthropic(ctx, caps, req, parts)
	case ProviderGemini:
		return s.callGemini(ctx, caps, req, parts)
	case ProviderOllama:
		return s.callOllama(ctx, req, parts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, req.Model)
	}
}

// callOpenAICompatible handles OpenAI and xAI, which share a wire format.
// The max-token field name and parameter support are capability-table
// driven; the model's output ceiling is always sent.
func (s *AIService) callOpenAICompatible(ctx context.Context, client *openai.Client, provider Provider, caps ModelCaps, req *CallRequest, parts []ImagePart) (*CallResponse, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: API key not configured", provider)
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	userMessage := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(parts) == 0 {
		userMessage.Content = req.UserPrompt
	} else {
		content := []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.UserPrompt},
		}
		for _, part := range parts {
			dataURL := "data:" + DetectImageMediaType(part.Data) + ";base64," +
				base64.StdEncoding.EncodeToString(part.Data)
			content = append(content, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
			})
		}
		userMessage.MultiContent = content
	}
	messages = append(messages, userMessage)

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}

	if caps.UseMaxCompletionTokens {
		chatReq.MaxCompletionTokens = caps.MaxOutputTokens
	} else {
		chatReq.MaxTokens = caps.MaxOutputTokens
	}
	if caps.SupportsTemperature {
		chatReq.Temperature = float32(req.Temperature)
	}
	if req.JSONMode && caps.SupportsJSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", provider, err)
	}

	usage := TokenUsage{
		Prompt:     resp.Usage.PromptTokens,
		Completion: resp.Usage.CompletionTokens,
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if content == "" {
		// Reasoning models can burn the whole completion budget internally
		// and return nothing; surface the count so callers can pick a
		// bigger budget or a different model.
		if d := resp.Usage.CompletionTokensDetails; d != nil && d.ReasoningTokens > 0 {
			return nil, fmt.Errorf("%s returned no output: all %d completion tokens were spent on reasoning (model %s)",
				provider, resp.Usage.CompletionTokens, req.Model)
		}
		return nil, fmt.Errorf("empty response from %s (model %s)", provider, req.Model)
	}

	return &CallResponse{
		Content:  content,
		Usage:    usage,
		Model:    req.Model,
		Provider: provider,
	}, nil
}

// callAnthropic handles the Anthropic Messages API: system prompt is a
// separate field and images are typed blocks with a sniffed media type.
func (s *AIService) callAnthropic(ctx context.Context, caps ModelCaps, req *CallRequest, parts []ImagePart) (*CallResponse, error) {
	if s.anthropicClient == nil {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}

	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range parts {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			DetectImageMediaType(part.Data),
			base64.StdEncoding.EncodeToString(part.Data),
		))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.UserPrompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(caps.MaxOutputTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if caps.SupportsTemperature {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := s.anthropicClient.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	if content.Len() == 0 {
		if string(resp.StopReason) == "max_tokens" {
			return nil, &lengthLimitError{model: req.Model}
		}
		return nil, fmt.Errorf("empty response from anthropic (model %s)", req.Model)
	}

	return &CallResponse{
		Content: content.String(),
		Usage: TokenUsage{
			Prompt:     int(resp.Usage.InputTokens),
			Completion: int(resp.Usage.OutputTokens),
		},
		Model:    req.Model,
		Provider: ProviderAnthropic,
	}, nil
}

// callGemini handles the Google Gemini API.
func (s *AIService) callGemini(ctx context.Context, caps ModelCaps, req *CallRequest, parts []ImagePart) (*CallResponse, error) {
	if s.geminiClient == nil {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	genParts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	for _, part := range parts {
		genParts = append(genParts, genai.NewPartFromBytes(part.Data, DetectImageMediaType(part.Data)))
	}
	contents := []*genai.Content{genai.NewContentFromParts(genParts, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if caps.SupportsTemperature {
		t := float32(req.Temperature)
		genConfig.Temperature = &t
	}
	if req.JSONMode && caps.SupportsJSONMode {
		genConfig.ResponseMIMEType = "application/json"
	}

	resp, err := s.geminiClient.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	content := resp.Text()
	if content == "" {
		return nil, fmt.Errorf("empty response from gemini (model %s)", req.Model)
	}

	usage := TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.Prompt = int(resp.UsageMetadata.PromptTokenCount)
		usage.Completion = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &CallResponse{
		Content:  content,
		Usage:    usage,
		Model:    req.Model,
		Provider: ProviderGemini,
	}, nil
}

// callOllama handles local models through the Ollama API.
func (s *AIService) callOllama(ctx context.Context, req *CallRequest, parts []ImagePart) (*CallResponse, error) {
	if s.ollamaClient == nil {
		return nil, fmt.Errorf("ollama: base URL not configured")
	}

	var messages []ollama.Message
	if req.SystemPrompt != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.SystemPrompt})
	}
	userMessage := ollama.Message{Role: "user", Content: req.UserPrompt}
	for _, part := range parts {
		userMessage.Images = append(userMessage.Images, ollama.ImageData(part.Data))
	}
	messages = append(messages, userMessage)

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    OllamaModelName(req.Model),
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
		},
	}
	if req.JSONMode {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var content strings.Builder
	var final ollama.ChatResponse
	err := s.ollamaClient.Chat(ctx, chatReq, func(resp ollama.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	if content.Len() == 0 {
		return nil, fmt.Errorf("empty response from ollama (model %s)", req.Model)
	}

	return &CallResponse{
		Content: content.String(),
		Usage: TokenUsage{
			Prompt:     final.Metrics.PromptEvalCount,
			Completion: final.Metrics.EvalCount,
		},
		Model:    req.Model,
		Provider: ProviderOllama,
	}, nil
}

// recordCall appends to the audit log, best-effort.
func (s *AIService) recordCall(req *CallRequest, resp *CallResponse, callErr error, duration time.Duration) {
	if !s.cfg.CallLogEnabled {
		return
	}

	entry := &models.AICallLog{
		LeadID:        req.LeadID,
		Engine:        req.Engine,
		Module:        req.Module,
		Model:         req.Model,
		PromptPreview: truncatePreview(req.UserPrompt, 400),
		LatencyMs:     duration.Milliseconds(),
		Success:       callErr == nil,
	}
	if provider, err := DetectProvider(req.Model); err == nil {
		entry.Provider = string(provider)
	}
	if resp != nil {
		entry.PromptTokens = resp.Usage.Prompt
		entry.CompletionTokens = resp.Usage.Completion
		entry.TotalTokens = resp.Usage.Total()
		entry.CostUSD = resp.CostUSD
		entry.ResponsePreview = truncatePreview(resp.Content, 400)
		entry.Cached = resp.Cached
	}
	if callErr != nil {
		entry.ErrorMessage = truncatePreview(callErr.Error(), 500)
	}

	s.callLog.Record(entry)
}

// debugDump emits console previews and optional per-call JSON files when
// debug mode is enabled.
func (s *AIService) debugDump(req *CallRequest, resp *CallResponse, callErr error, duration time.Duration) {
	if s.cfg.Debug.Console {
		logger.Infof("[AI:debug] model=%s system=%q user=%q", req.Model,
			truncatePreview(req.SystemPrompt, 200), truncatePreview(req.UserPrompt, 200))
		if resp != nil {
			logger.Infof("[AI:debug] response (cached=%t, %dms, $%.6f): %q",
				resp.Cached, duration.Milliseconds(), resp.CostUSD, truncatePreview(resp.Content, 400))
		}
		if callErr != nil {
			logger.Infof("[AI:debug] error after %dms: %v", duration.Milliseconds(), callErr)
		}
	}

	if s.cfg.Debug.DumpDir == "" {
		return
	}

	dump := struct {
		Timestamp  time.Time     `json:"timestamp"`
		Request    *CallRequest  `json:"request"`
		Response   *CallResponse `json:"response,omitempty"`
		Error      string        `json:"error,omitempty"`
		DurationMs int64         `json:"duration_ms"`
	}{
		Timestamp:  time.Now(),
		Request:    req,
		Response:   resp,
		DurationMs: duration.Milliseconds(),
	}
	if callErr != nil {
		dump.Error = callErr.Error()
	}

	if err := os.MkdirAll(s.cfg.Debug.DumpDir, 0755); err != nil {
		logger.Warnf("[AI:debug] Cannot create dump dir: %v", err)
		return
	}

	name := fmt.Sprintf("ai-call-%s.json", time.Now().Format("20060102-150405.000"))
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		logger.Warnf("[AI:debug] Cannot marshal dump: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.cfg.Debug.DumpDir, name), data, 0644); err != nil {
		logger.Warnf("[AI:debug] Cannot write dump file: %v", err)
	}
}
