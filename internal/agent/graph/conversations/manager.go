package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

// MessagesManager mediates between the graph and the conversation store.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
}

func NewMessagesManager(conversationRepo model.ConversationRepository) *MessagesManager {
	return &MessagesManager{conversationRepo: conversationRepo}
}

// RecordInbound appends the client's message to the transcript before the
// model run, so the response context always includes it.
func (cm *MessagesManager) RecordInbound(ctx context.Context, conversationID, query string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query))
}

// BuildResponseContext assembles the model input: the per-turn system
// prompt followed by the stored transcript.
func (cm *MessagesManager) BuildResponseContext(ctx context.Context, conversationID, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	messages = append(messages, history.Messages...)

	return messages, nil
}

// SaveResponse appends a final assistant reply to the transcript.
func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// RecentTranscript renders the last maxTurns messages as tagged plain text
// for the insight extractor.
func (cm *MessagesManager) RecentTranscript(ctx context.Context, conversationID string, maxTurns int) (string, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return "", err
	}

	recent := trimTail(history.Messages, maxTurns)

	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range recent {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("ClientMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("SellerMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")
	return b.String(), nil
}

// trimTail returns a copy of the last maxTurns messages.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
