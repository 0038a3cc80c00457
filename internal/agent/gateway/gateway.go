// Package gateway implements outbound message delivery. The logging
// gateway stands in for a messaging-platform integration; production
// swaps in an implementation of the same interface.
package gateway

import (
	"context"

	"github.com/dealerflow/salesagent/internal/agent/model"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// LoggingGateway writes outbound messages to the structured log.
type LoggingGateway struct{}

func NewLoggingGateway() *LoggingGateway {
	return &LoggingGateway{}
}

func (g *LoggingGateway) Send(_ context.Context, recipient, text, mediaURL string) error {
	ev := logx.Info().
		Str("recipient", recipient).
		Str("text", text)
	if mediaURL != "" {
		ev = ev.Str("media_url", mediaURL)
	}
	ev.Msg("outbound message")
	return nil
}

var _ model.OutboundGateway = (*LoggingGateway)(nil)
