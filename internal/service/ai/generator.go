package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/taqrir/reportbot/internal/config"
)

const systemPrompt = "أنت كاتب تقارير أكاديمية محترف. اكتب نص التقرير المطلوب " +
	"بالعربية الفصحى بأسلوب أكاديمي واضح، مقسماً إلى فقرات مترابطة، دون مقدمات " +
	"عن نفسك ودون أي تعليقات خارج نص التقرير."

// Service generates report body text through the configured chat model.
type Service struct {
	cfg   config.AIConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the generation chain against the configured model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &Service{cfg: cfg, chain: runnable}, nil
}

// GenerateBody asks the model for body text covering the topic at roughly
// the desired page count.
func (s *Service) GenerateBody(ctx context.Context, topic string, pages int) (string, error) {
	input := map[string]any{
		"system": systemPrompt,
		"query": fmt.Sprintf(
			"اكتب محتوى تقرير أكاديمي عن الموضوع التالي بطول %d صفحة تقريباً:\n%s",
			pages, topic,
		),
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run generation chain: %w", err)
	}

	body := strings.TrimSpace(response.Content)
	log.Printf("[ai] generated report body, pages=%d length=%d", pages, len(body))
	return body, nil
}
