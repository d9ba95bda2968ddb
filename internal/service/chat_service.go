package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mailvault/internal/model"
	"mailvault/internal/repository"
	"mailvault/internal/search"
	"mailvault/pkg/trace"
)

const (
	// retrieveLimit is how many chunks feed the chat context block.
	retrieveLimit = 8
	// historyLimit is how many prior turns are replayed to the model.
	historyLimit = 10
	// titleMaxRunes truncates the auto-generated conversation title.
	titleMaxRunes = 60
)

type ChatService struct {
	conversations *repository.ConversationRepository
	searcher      *SearchService
	agent         *AgentClient
	logger        *zap.Logger
}

func NewChatService(
	conversations *repository.ConversationRepository,
	searcher *SearchService,
	agent *AgentClient,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		searcher:      searcher,
		agent:         agent,
		logger:        logger,
	}
}

// ChatAnswer bundles the assistant message with the chunks it was
// grounded on, so the API can render citations.
type ChatAnswer struct {
	Message *model.Message
	Sources []search.Result
}

// CreateConversation starts a new thread. An empty title gets filled in
// from the first question.
func (s *ChatService) CreateConversation(ctx context.Context, userID int64, title string) (*model.Conversation, error) {
	c := &model.Conversation{UserID: userID, Title: strings.TrimSpace(title)}
	if err := s.conversations.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns the user's threads, newest first.
func (s *ChatService) ListConversations(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID)
}

// ListMessages returns a thread's messages after an ownership check.
func (s *ChatService) ListMessages(ctx context.Context, conversationID, userID int64) ([]model.Message, error) {
	if _, err := s.conversations.FindByID(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, conversationID)
}

// SendMessage runs one RAG turn: persist the question, retrieve context
// from the user's corpus, ask the agent, persist and return the answer.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, userID int64, question string) (*ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("message content is required")
	}

	conv, err := s.conversations.FindByID(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	prior, err := s.conversations.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        question,
	}
	if err := s.conversations.AddMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	sources, contextBlock, err := s.searcher.Retrieve(ctx, userID, question, retrieveLimit)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	answer, err := s.agent.Chat(ctx, question, contextBlock, buildHistory(prior))
	if err != nil {
		s.logger.Error("Chat completion failed",
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.Int64("conversation_id", conversationID),
			zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	assistantMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        answer,
	}
	if err := s.conversations.AddMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	if conv.Title == "" && len(prior) == 0 {
		s.maybeTitle(ctx, conv, question)
	}

	return &ChatAnswer{Message: assistantMsg, Sources: sources}, nil
}

// buildHistory converts the last historyLimit stored messages into agent
// chat turns, oldest first.
func buildHistory(messages []model.Message) []ChatTurn {
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}
	turns := make([]ChatTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func (s *ChatService) maybeTitle(ctx context.Context, conv *model.Conversation, question string) {
	title := question
	if runes := []rune(title); len(runes) > titleMaxRunes {
		title = string(runes[:titleMaxRunes])
	}
	if err := s.conversations.UpdateTitle(ctx, conv.ID, title); err != nil {
		s.logger.Warn("Failed to set conversation title", zap.Error(err))
	}
}
