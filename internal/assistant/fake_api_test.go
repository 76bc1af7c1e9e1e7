package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// fakeAPI simulates the Assistants backend. Runs walk through statuses in
// order; the last status repeats forever.
type fakeAPI struct {
	mu sync.Mutex

	statuses []openai.RunStatus
	messages []openai.Message

	createAssistantErr error
	modifyAssistantErr error
	createThreadErr    error
	retrieveErr        error
	listErr            error
	deleteErr          error

	// onRetrieve runs after every RetrieveRun with the 1-based poll count.
	onRetrieve func(polls int)

	assistantsCreated  int
	assistantsModified []string
	threadsCreated     int
	posted             []openai.MessageRequest
	runRequests        []openai.RunRequest
	retrieves          int
	cancels            int
	deletes            []string
}

func (f *fakeAPI) CreateAssistant(ctx context.Context, request openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createAssistantErr != nil {
		return openai.Assistant{}, f.createAssistantErr
	}
	f.assistantsCreated++
	return openai.Assistant{ID: fmt.Sprintf("asst_new_%d", f.assistantsCreated)}, nil
}

func (f *fakeAPI) ModifyAssistant(ctx context.Context, assistantID string, request openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assistantsModified = append(f.assistantsModified, assistantID)
	if f.modifyAssistantErr != nil {
		return openai.Assistant{}, f.modifyAssistantErr
	}
	return openai.Assistant{ID: assistantID}, nil
}

func (f *fakeAPI) CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createThreadErr != nil {
		return openai.Thread{}, f.createThreadErr
	}
	f.threadsCreated++
	return openai.Thread{ID: fmt.Sprintf("thread_%d", f.threadsCreated)}, nil
}

func (f *fakeAPI) DeleteThread(ctx context.Context, threadID string) (openai.ThreadDeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, threadID)
	if f.deleteErr != nil {
		return openai.ThreadDeleteResponse{}, f.deleteErr
	}
	return openai.ThreadDeleteResponse{ID: threadID, Deleted: true}, nil
}

func (f *fakeAPI) CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, request)
	return openai.Message{ID: "msg_user", ThreadID: threadID, Role: request.Role}, nil
}

func (f *fakeAPI) ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return openai.MessagesList{}, f.listErr
	}
	return openai.MessagesList{Messages: f.messages}, nil
}

func (f *fakeAPI) CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runRequests = append(f.runRequests, request)
	return openai.Run{ID: "run_1", ThreadID: threadID, Status: f.statusAt(0)}, nil
}

func (f *fakeAPI) RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error) {
	f.mu.Lock()
	f.retrieves++
	polls := f.retrieves
	status := f.statusAt(polls)
	err := f.retrieveErr
	hook := f.onRetrieve
	f.mu.Unlock()

	if hook != nil {
		hook(polls)
	}
	if err != nil {
		return openai.Run{}, err
	}
	return openai.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

func (f *fakeAPI) CancelRun(ctx context.Context, threadID string, runID string) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return openai.Run{ID: runID, ThreadID: threadID, Status: openai.RunStatusCancelling}, nil
}

func (f *fakeAPI) statusAt(i int) openai.RunStatus {
	if len(f.statuses) == 0 {
		return openai.RunStatusCompleted
	}
	if i >= len(f.statuses) {
		return f.statuses[len(f.statuses)-1]
	}
	return f.statuses[i]
}

func assistantText(text string) openai.Message {
	return openai.Message{
		Role: openai.ChatMessageRoleAssistant,
		Content: []openai.MessageContent{
			{Type: "text", Text: &openai.MessageText{Value: text}},
		},
	}
}

var errBackend = errors.New("backend unavailable")
