// Package agent implements the conversation engine: the deterministic
// pipeline around every inbound message. The engine extracts facts, merges
// them into the session, gates the stage, composes the system prompt, runs
// the response graph, and persists tool effects — all stage progress comes
// from this pipeline, never from model prose.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dealerflow/salesagent/internal/agent/extract"
	"github.com/dealerflow/salesagent/internal/agent/graph"
	"github.com/dealerflow/salesagent/internal/agent/graph/tools"
	"github.com/dealerflow/salesagent/internal/agent/memory"
	"github.com/dealerflow/salesagent/internal/agent/model"
	"github.com/dealerflow/salesagent/internal/agent/prompts"
	"github.com/dealerflow/salesagent/internal/agent/ratelimit"
	"github.com/dealerflow/salesagent/internal/agent/stage"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// ErrRateLimited reports that the outbound dispatch budget for this
// recipient is exhausted; the send should be retried later, not dropped.
var ErrRateLimited = errors.New("outbound rate limit exceeded")

// fallbackReply goes out when the response model fails. It commits to
// nothing: no numbers, no availability, no promises.
const fallbackReply = "Dale, dame un momentito que estoy con un cliente y te contesto bien."

// Reply is the outcome of one inbound message.
type Reply struct {
	Text              string
	MediaURL          string
	Stage             model.Stage
	StatusColor       string
	RelationshipScore int
}

// Engine orchestrates one conversation turn end to end.
type Engine struct {
	sessions      model.SessionRepository
	conversations model.ConversationRepository
	memories      *memory.Service
	extractor     *extract.Extractor
	composer      *prompts.Composer
	responder     graph.Runner
	gateway       model.OutboundGateway
	limiter       ratelimit.Limiter

	locks *conversationLocks
	clock func() time.Time

	// insightHook is invoked asynchronously after a turn; tests replace it.
	insightHook func(clientID string)
}

// Config assembles an Engine.
type Config struct {
	Sessions      model.SessionRepository
	Conversations model.ConversationRepository
	Memories      *memory.Service
	Extractor     *extract.Extractor
	Composer      *prompts.Composer
	Responder     graph.Runner
	Gateway       model.OutboundGateway
	Limiter       ratelimit.Limiter
	Clock         func() time.Time
}

func New(cfg Config) (*Engine, error) {
	if cfg.Sessions == nil || cfg.Memories == nil || cfg.Extractor == nil ||
		cfg.Composer == nil || cfg.Responder == nil {
		return nil, fmt.Errorf("engine config is incomplete")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		sessions:      cfg.Sessions,
		conversations: cfg.Conversations,
		memories:      cfg.Memories,
		extractor:     cfg.Extractor,
		composer:      cfg.Composer,
		responder:     cfg.Responder,
		gateway:       cfg.Gateway,
		limiter:       cfg.Limiter,
		locks:         newConversationLocks(),
		clock:         clock,
	}
	e.insightHook = e.runInsightUpdate
	return e, nil
}

// HandleInbound processes one client message and returns the reply to
// send. The lock discipline is: merge facts and compose under the lock,
// release it for the model round trip, then retake it to persist tool
// effects. Session writes never happen outside the lock.
func (e *Engine) HandleInbound(ctx context.Context, clientID, clientName, message string) (*Reply, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is empty")
	}
	now := e.clock()

	// phase 1: merge facts, gate, compose
	e.locks.Lock(clientID)
	sess, err := e.loadOrCreateSession(ctx, clientID, now)
	if err != nil {
		e.locks.Unlock(clientID)
		return nil, err
	}

	patch := e.extractor.Extract(message, sess)
	sess.Apply(patch, now)
	sess.Stage = stage.Gate(sess)
	if err := e.sessions.Save(ctx, sess); err != nil {
		e.locks.Unlock(clientID)
		return nil, fmt.Errorf("persist session: %w", err)
	}

	mem, err := e.memories.Get(ctx, clientID)
	if err != nil {
		// memory is an enrichment; a read failure degrades, never blocks
		logx.Warn().Err(err).Str("client_id", clientID).Msg("client memory unavailable for this turn")
		mem = nil
	}

	systemPrompt, err := e.composer.Render(ctx, sess, e.memories.RenderContext(mem))
	if err != nil {
		e.locks.Unlock(clientID)
		return nil, fmt.Errorf("compose system prompt: %w", err)
	}

	snapshot := *sess
	e.locks.Unlock(clientID)

	// phase 2: model round trip, lock released
	turn := &tools.Turn{Session: &snapshot, ClientName: clientName}
	text, err := e.responder.Invoke(tools.WithTurn(ctx, turn), model.TurnInput{
		ConversationID: clientID,
		Query:          message,
		SystemPrompt:   systemPrompt,
	})
	if err != nil || text == "" {
		if err != nil {
			logx.Error().Err(err).Str("client_id", clientID).Msg("response model failed; sending fallback reply")
		} else {
			logx.Warn().Str("client_id", clientID).Msg("response model returned empty reply; sending fallback")
		}
		text = fallbackReply
	}

	// phase 3: persist tool effects under the lock
	e.locks.Lock(clientID)
	finalStage, score, perr := e.persistTurnEffects(ctx, clientID, turn, now)
	e.locks.Unlock(clientID)
	if perr != nil {
		// the reply is already composed; effect persistence failing must
		// not eat it
		logx.Error().Err(perr).Str("client_id", clientID).Msg("failed to persist turn effects")
		finalStage = snapshot.Stage
	}

	go e.insightHook(clientID)

	return &Reply{
		Text:              text,
		MediaURL:          turn.MediaURL(),
		Stage:             finalStage,
		StatusColor:       finalStage.StatusColor(),
		RelationshipScore: score,
	}, nil
}

// persistTurnEffects merges what the tools did into the session and the
// client memory. Caller holds the conversation lock.
func (e *Engine) persistTurnEffects(ctx context.Context, clientID string, turn *tools.Turn, now time.Time) (model.Stage, int, error) {
	sess, err := e.loadOrCreateSession(ctx, clientID, now)
	if err != nil {
		return model.StageDiscovery, 0, err
	}

	offers := turn.Offers()
	booking := turn.Booking()

	if len(offers) > 0 {
		last := offers[len(offers)-1]
		sess.LastOffer = &last
	}
	if booking != nil {
		at := booking.At
		sess.AppointmentAt = &at
	}
	sess.Stage = stage.Gate(sess)
	sess.UpdatedAt = now

	if err := e.sessions.Save(ctx, sess); err != nil {
		return sess.Stage, 0, fmt.Errorf("persist session effects: %w", err)
	}

	mem, err := e.memories.Touch(ctx, clientID, sess, offers, booking != nil, now)
	if err != nil {
		return sess.Stage, 0, err
	}
	return sess.Stage, mem.RelationshipScore, nil
}

// Dispatch sends a composed reply through the outbound gateway, honoring
// the per-recipient rate limit.
func (e *Engine) Dispatch(ctx context.Context, recipient string, reply *Reply) error {
	if e.gateway == nil {
		return fmt.Errorf("no outbound gateway configured")
	}
	if e.limiter != nil {
		ok, err := e.limiter.Allow(ctx, recipient)
		if err != nil {
			return fmt.Errorf("rate limit check: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrRateLimited, recipient)
		}
	}
	return e.gateway.Send(ctx, recipient, reply.Text, reply.MediaURL)
}

// ResetSession is the explicit administrative reset: it drops the session
// record and the transcript. Client memory survives by design.
func (e *Engine) ResetSession(ctx context.Context, clientID string) error {
	e.locks.Lock(clientID)
	defer e.locks.Unlock(clientID)

	if err := e.sessions.Delete(ctx, clientID); err != nil {
		return err
	}
	if e.conversations != nil {
		if err := e.conversations.ClearHistory(ctx, clientID); err != nil {
			return err
		}
	}
	logx.Info().Str("client_id", clientID).Msg("session reset")
	return nil
}

func (e *Engine) loadOrCreateSession(ctx context.Context, clientID string, now time.Time) (*model.SessionState, error) {
	sess, err := e.sessions.Get(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = model.NewSessionState(clientID, now)
	}
	return sess, nil
}

// runInsightUpdate is the default async insight hook.
func (e *Engine) runInsightUpdate(clientID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.memories.UpdateInsights(ctx, clientID, clientID, e.clock()); err != nil {
		logx.Warn().Err(err).Str("client_id", clientID).Msg("insight update failed")
	}
}
