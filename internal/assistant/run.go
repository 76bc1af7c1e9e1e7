package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Message is one conversation turn handed to Complete.
type Message struct {
	Role    string
	Content string
}

// Reply describes how a run ended. Text is empty unless Status is completed
// and the assistant produced text.
type Reply struct {
	Text     string
	Status   RunStatus
	ThreadID string
	RunID    string
	Polls    int
}

// Complete posts the user messages to a fresh remote thread, runs the
// assistant on it, polls at a fixed interval until the run is terminal and
// returns the newest assistant text. The thread is deleted once it exists,
// whatever the outcome.
//
// A non-empty instructions value different from the configured one
// overrides the assistant's instructions for this run only.
func (g *Gateway) Complete(ctx context.Context, instructions string, messages []Message) (Reply, error) {
	assistantID := g.AssistantID()
	if assistantID == "" {
		return Reply{}, ErrNotReady
	}

	thread, err := g.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create thread: %w", err)
	}
	reply := Reply{ThreadID: thread.ID, Status: StatusCreated}
	defer g.deleteThread(ctx, thread.ID)

	for _, m := range messages {
		if m.Role != openai.ChatMessageRoleUser || m.Content == "" {
			continue
		}
		_, err := g.api.CreateMessage(ctx, thread.ID, openai.MessageRequest{
			Role:    openai.ChatMessageRoleUser,
			Content: m.Content,
		})
		if err != nil {
			return reply, fmt.Errorf("failed to add message to thread %s: %w", thread.ID, err)
		}
	}

	runReq := openai.RunRequest{AssistantID: assistantID}
	if instructions != "" && instructions != g.config.Instructions {
		runReq.Instructions = instructions
	}
	run, err := g.api.CreateRun(ctx, thread.ID, runReq)
	if err != nil {
		return reply, fmt.Errorf("failed to start run on thread %s: %w", thread.ID, err)
	}
	reply.RunID = run.ID
	reply.Status = statusOf(run)

	pollCtx := ctx
	if g.config.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, g.config.PollTimeout)
		defer cancel()
	}

	run, err = g.poll(pollCtx, thread.ID, run, &reply)
	if err != nil {
		return reply, err
	}

	if !reply.Status.Succeeded() {
		g.logger.Warn("Run did not complete",
			zap.String("thread_id", thread.ID),
			zap.String("run_id", run.ID),
			zap.String("status", string(reply.Status)),
			zap.Any("last_error", run.LastError))
		return reply, fmt.Errorf("%w: run %s ended %s", ErrRunUnsuccessful, run.ID, reply.Status)
	}

	text, err := g.latestAssistantText(ctx, thread.ID)
	if err != nil {
		g.logger.Warn("Failed to fetch reply",
			zap.Error(err),
			zap.String("thread_id", thread.ID),
			zap.String("run_id", run.ID))
		return reply, fmt.Errorf("%w: thread %s: %w", ErrReplyUnavailable, thread.ID, err)
	}
	reply.Text = text

	g.logger.Info("Run completed",
		zap.String("thread_id", thread.ID),
		zap.String("run_id", run.ID),
		zap.Int("polls", reply.Polls),
		zap.Int("reply_len", len(text)))
	return reply, nil
}

// poll waits between checks while the run is pending. Cancelling ctx stops
// it between polls and cancels the remote run.
func (g *Gateway) poll(ctx context.Context, threadID string, run openai.Run, reply *Reply) (openai.Run, error) {
	ticker := time.NewTicker(g.config.PollInterval)
	defer ticker.Stop()

	for reply.Status.Pending() {
		select {
		case <-ctx.Done():
			g.cancelRun(ctx, threadID, run.ID)
			return run, fmt.Errorf("stopped polling run %s in status %s: %w", run.ID, reply.Status, ctx.Err())
		case <-ticker.C:
		}

		next, err := g.api.RetrieveRun(ctx, threadID, run.ID)
		reply.Polls++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				g.cancelRun(ctx, threadID, run.ID)
				return run, fmt.Errorf("stopped polling run %s in status %s: %w", run.ID, reply.Status, ctxErr)
			}
			return run, fmt.Errorf("failed to retrieve run %s: %w", run.ID, err)
		}
		run = next
		reply.Status = statusOf(run)
	}
	return run, nil
}

func (g *Gateway) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := listLimit
	order := "desc"
	list, err := g.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", err
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" && part.Text != nil && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", nil
}

// deleteThread runs on a context detached from the caller's cancellation so
// cleanup still happens after a timeout or shutdown.
func (g *Gateway) deleteThread(ctx context.Context, threadID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if _, err := g.api.DeleteThread(ctx, threadID); err != nil {
		g.logger.Warn("Failed to delete thread",
			zap.Error(err),
			zap.String("thread_id", threadID))
		return
	}
	g.logger.Debug("Deleted thread", zap.String("thread_id", threadID))
}

func (g *Gateway) cancelRun(ctx context.Context, threadID, runID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if _, err := g.api.CancelRun(ctx, threadID, runID); err != nil {
		g.logger.Warn("Failed to cancel run",
			zap.Error(err),
			zap.String("thread_id", threadID),
			zap.String("run_id", runID))
	}
}

// IsNoReply reports whether err means a run went through but produced no
// usable reply, as opposed to the backend refusing the request.
func IsNoReply(err error) bool {
	return errors.Is(err, ErrRunUnsuccessful) || errors.Is(err, ErrReplyUnavailable)
}
