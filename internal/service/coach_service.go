package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gymvision/internal/ai"
	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrInvalidTurnRequest = errors.New("coach turn requires a workout id and a transcript ending in a user message")
)

// The single capability exposed to the model. Its schema constrains the
// model to replacing the workout's title and/or plan body; no other
// mutation is reachable from a chat turn.
const (
	updateWorkoutToolName = "updateWorkoutDescription"
	toolSuccessOutput     = "Workout updated successfully."
)

// maxToolCycles bounds the model<->tool loop within one turn. The tool
// set supports one meaningful cycle; the headroom covers a retry after
// a failed tool execution.
const maxToolCycles = 4

// CoachEventKind discriminates the events streamed to the caller.
type CoachEventKind string

const (
	CoachEventTextDelta  CoachEventKind = "text-delta"
	CoachEventToolCall   CoachEventKind = "tool-call"
	CoachEventToolResult CoachEventKind = "tool-result"
	CoachEventFinish     CoachEventKind = "finish"
	CoachEventError      CoachEventKind = "error"
)

// CoachEvent is one framed event of a coach turn's response stream.
type CoachEvent struct {
	Kind      CoachEventKind         `json:"kind"`
	MessageID string                 `json:"messageId,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Tool      *domain.ToolInvocation `json:"tool,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// CoachService drives one conversational turn between a user and the
// workout coach: it invokes the model with the bounded update tool,
// streams output as it is produced, executes the tool against the
// workout store, and durably appends the whole turn to the transcript
// exactly once.
type CoachService interface {
	// StreamTurn validates the request, serializes against other turns
	// on the same workout, and returns a live event channel for the
	// turn. The channel is closed after the terminal finish or error
	// event.
	StreamTurn(ctx context.Context, userID, workoutID primitive.ObjectID, transcript []domain.Message) (<-chan CoachEvent, error)
}

// coachService implements CoachService.
type coachService struct {
	workoutRepo repository.WorkoutRepository
	gateway     ai.Gateway
	turnTimeout time.Duration

	// Turns on the same workout are serialized so that the transcript
	// write of one turn can never overwrite another turn's append.
	mu        sync.Mutex
	turnLocks map[primitive.ObjectID]*sync.Mutex
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(workoutRepo repository.WorkoutRepository, gateway ai.Gateway, turnTimeout time.Duration) CoachService {
	if turnTimeout <= 0 {
		turnTimeout = 60 * time.Second
	}
	return &coachService{
		workoutRepo: workoutRepo,
		gateway:     gateway,
		turnTimeout: turnTimeout,
		turnLocks:   make(map[primitive.ObjectID]*sync.Mutex),
	}
}

// lockFor returns the per-workout turn lock, creating it on first use.
// Locks are never evicted; the map is bounded by the number of workouts
// coached within one process lifetime.
func (s *coachService) lockFor(workoutID primitive.ObjectID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.turnLocks[workoutID]
	if !ok {
		l = &sync.Mutex{}
		s.turnLocks[workoutID] = l
	}
	return l
}

// StreamTurn runs one coach turn. See CoachService for the contract.
//
// Failure behaviour, in order:
//   - invalid input / unknown or foreign workout: error return, no
//     model call, no side effects;
//   - gateway error mid-stream: error event, no transcript append;
//   - tool execution error: error recorded on the tool segment, turn
//     continues and is persisted;
//   - transcript append error after a successful turn: logged and
//     swallowed — the caller already holds the full streamed output,
//     re-surfacing a failure here would contradict what they saw.
func (s *coachService) StreamTurn(ctx context.Context, userID, workoutID primitive.ObjectID, transcript []domain.Message) (<-chan CoachEvent, error) {
	if workoutID == primitive.NilObjectID || len(transcript) == 0 {
		return nil, ErrInvalidTurnRequest
	}
	if transcript[len(transcript)-1].Role != domain.MessageRoleUser {
		return nil, ErrInvalidTurnRequest
	}

	// Serialize before reading: the workout snapshot used for the system
	// instruction must not predate a concurrent turn's tool write.
	lock := s.lockFor(workoutID)
	lock.Lock()

	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		lock.Unlock()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	if workout.UserID != userID {
		lock.Unlock()
		return nil, ErrWorkoutNotFound // Do not reveal foreign workouts.
	}

	events := make(chan CoachEvent, 16)
	go func() {
		defer lock.Unlock()
		defer close(events)
		s.runTurn(ctx, workout, transcript, events)
	}()
	return events, nil
}

// runTurn drives the model/tool loop for one turn and performs the
// single durable append at the end.
func (s *coachService) runTurn(ctx context.Context, workout *domain.Workout, transcript []domain.Message, events chan<- CoachEvent) {
	turnCtx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	req := &ai.GenerateRequest{
		SystemInstruction: &ai.Content{Parts: []ai.Part{{Text: coachSystemPrompt(workout)}}},
		Contents:          transcriptToContents(transcript),
		Tools:             []ai.Tool{updateWorkoutTool()},
	}

	var generated []domain.Message

	for cycle := 0; cycle < maxToolCycles; cycle++ {
		stream, err := s.gateway.Stream(turnCtx, req)
		if err != nil {
			s.emit(turnCtx, events, CoachEvent{Kind: CoachEventError, Error: err.Error()})
			return
		}

		assistant := domain.Message{
			ID:        domain.NewMessageID(),
			Role:      domain.MessageRoleAssistant,
			CreatedAt: time.Now().UTC(),
		}
		var pending []*domain.ToolInvocation

		for ev := range stream {
			switch {
			case ev.Err != nil:
				// Aborted: nothing from this turn is persisted. The
				// caller may have seen partial text, but client-visible
				// output does not imply stored state.
				s.emit(turnCtx, events, CoachEvent{Kind: CoachEventError, Error: ev.Err.Error()})
				return
			case ev.TextDelta != "":
				appendTextDelta(&assistant, ev.TextDelta)
				if !s.emit(turnCtx, events, CoachEvent{Kind: CoachEventTextDelta, MessageID: assistant.ID, Text: ev.TextDelta}) {
					return
				}
			case ev.FunctionCall != nil:
				// Gemini delivers function calls with input already
				// finalized, so the invocation moves straight from
				// requested to ready.
				inv := &domain.ToolInvocation{
					ID:    domain.NewToolCallID(),
					Name:  ev.FunctionCall.Name,
					State: domain.ToolStateReady,
					Input: ev.FunctionCall.Args,
				}
				assistant.Parts = append(assistant.Parts, domain.ToolSegment(inv))
				pending = append(pending, inv)
				if !s.emit(turnCtx, events, CoachEvent{Kind: CoachEventToolCall, MessageID: assistant.ID, Tool: inv}) {
					return
				}
			}
		}
		if turnCtx.Err() != nil {
			// Caller cancelled or the turn ceiling expired mid-stream.
			// Cancellation propagates immediately and the append is
			// skipped wholesale; a half-turn is never persisted.
			select {
			case events <- CoachEvent{Kind: CoachEventError, Error: turnCtx.Err().Error()}:
			default: // Nobody is reading anymore.
			}
			return
		}

		generated = append(generated, assistant)

		if len(pending) == 0 {
			break // Model signalled completion with no tool work left.
		}

		for _, inv := range pending {
			output, errText := s.executeTool(turnCtx, workout.ID, inv)
			inv.Complete(output, errText)
			if !s.emit(turnCtx, events, CoachEvent{Kind: CoachEventToolResult, MessageID: assistant.ID, Tool: inv}) {
				return
			}
		}

		// Feed the tool results back so the model can acknowledge them
		// in its final text.
		req.Contents = append(req.Contents, assistantContent(&assistant))
		req.Contents = append(req.Contents, functionResponseContent(pending))
	}

	// Completing -> Persisted | PersistFailed. One logical write with
	// the full enlarged history; streaming above was a side channel.
	full := make([]domain.Message, 0, len(transcript)+len(generated))
	full = append(full, transcript...)
	full = append(full, generated...)
	if err := s.workoutRepo.ReplaceTranscript(turnCtx, workout.ID, full); err != nil {
		// Degraded terminal state: the user already received the full
		// response, so the failure is logged rather than re-surfaced.
		log.Printf("ERROR: Failed to save coach transcript for workout %s: %v", workout.ID.Hex(), err)
	}

	s.emit(turnCtx, events, CoachEvent{Kind: CoachEventFinish})
}

// executeTool runs the bounded tool synchronously within the turn.
// A failed execution is reported as an error string on the segment;
// it never aborts the turn.
func (s *coachService) executeTool(ctx context.Context, workoutID primitive.ObjectID, inv *domain.ToolInvocation) (output, errText string) {
	if inv.Name != updateWorkoutToolName {
		return "", fmt.Sprintf("unknown tool %q", inv.Name)
	}

	newDescription, ok := stringArg(inv.Input, "newDescription")
	if !ok || newDescription == "" {
		return "", "newDescription is required"
	}
	var newTitle *string
	if t, ok := stringArg(inv.Input, "newTitle"); ok && t != "" {
		newTitle = &t
	}

	// Full replacement of the plan body; title only when provided.
	if err := s.workoutRepo.UpdatePlan(ctx, workoutID, newTitle, newDescription); err != nil {
		return "", err.Error()
	}
	return toolSuccessOutput, ""
}

// emit delivers an event unless the context is done. Returns false when
// delivery was abandoned.
func (s *coachService) emit(ctx context.Context, events chan<- CoachEvent, ev CoachEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// appendTextDelta extends the trailing text segment, or starts a new one
// when the previous segment was a tool call. Segment order therefore
// matches model emission order exactly.
func appendTextDelta(msg *domain.Message, delta string) {
	if n := len(msg.Parts); n > 0 && msg.Parts[n-1].Kind == domain.SegmentKindText {
		msg.Parts[n-1].Text += delta
		return
	}
	msg.Parts = append(msg.Parts, domain.TextSegment(delta))
}

// stringArg reads a string field out of a tool input map.
func stringArg(input map[string]interface{}, key string) (string, bool) {
	if input == nil {
		return "", false
	}
	v, ok := input[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// coachSystemPrompt builds the system instruction from the workout's
// current state, read once at turn start.
func coachSystemPrompt(w *domain.Workout) string {
	description := w.Description
	if description == "" {
		description = "No description provided."
	}
	return fmt.Sprintf(`You are an expert fitness coach and personal trainer. You are chatting with a user about their specific workout session.

**Current Workout Context:**
Title: %s
Date: %s
Description/Plan:
%s

**Your Goal:**
Help the user with this specific workout. You can:
1. Explain exercises or techniques.
2. Suggest modifications (easier/harder versions).
3. Offer motivation.
4. Update the workout plan if they ask for changes (e.g., "Change bench press to pushups").

**Tone:**
Encouraging, knowledgeable, clear, and concise.`, w.Name, w.Date.Format("January 2, 2006"), description)
}

// updateWorkoutTool declares the one capability the coach model may
// invoke.
func updateWorkoutTool() ai.Tool {
	return ai.Tool{FunctionDeclarations: []ai.FunctionDeclaration{
		{
			Name:        updateWorkoutToolName,
			Description: "Update the workout description/plan based on user request. Use this when the user asks to modify the exercises or structure.",
			Parameters: &ai.Schema{
				Type: "object",
				Properties: map[string]*ai.Schema{
					"newTitle": {
						Type:        "string",
						Description: "The new title of the workout.",
					},
					"newDescription": {
						Type:        "string",
						Description: "The new, complete markdown description of the workout.",
					},
				},
				Required: []string{"newDescription"},
			},
		},
	}}
}

// transcriptToContents maps stored transcript messages onto the Gemini
// wire format. Completed tool invocations inside assistant messages are
// followed by a functionResponse content under role "user", as the API
// requires.
func transcriptToContents(transcript []domain.Message) []ai.Content {
	var contents []ai.Content
	for i := range transcript {
		msg := &transcript[i]
		switch msg.Role {
		case domain.MessageRoleUser:
			contents = append(contents, ai.Content{Role: "user", Parts: []ai.Part{{Text: msg.Text()}}})
		case domain.MessageRoleAssistant:
			contents = append(contents, assistantContent(msg))
			if completed := completedInvocations(msg); len(completed) > 0 {
				contents = append(contents, functionResponseContent(completed))
			}
		case domain.MessageRoleTool:
			contents = append(contents, functionResponseContent(completedInvocations(msg)))
		}
	}
	return contents
}

// assistantContent maps an assistant message's segments onto model-role
// parts, preserving interleaving.
func assistantContent(msg *domain.Message) ai.Content {
	parts := make([]ai.Part, 0, len(msg.Parts))
	for i := range msg.Parts {
		seg := &msg.Parts[i]
		switch seg.Kind {
		case domain.SegmentKindText:
			if seg.Text != "" {
				parts = append(parts, ai.Part{Text: seg.Text})
			}
		case domain.SegmentKindTool:
			if seg.Tool != nil {
				parts = append(parts, ai.Part{FunctionCall: &ai.FunctionCall{Name: seg.Tool.Name, Args: seg.Tool.Input}})
			}
		}
	}
	return ai.Content{Role: "model", Parts: parts}
}

// functionResponseContent wraps resolved tool results for the model.
func functionResponseContent(invocations []*domain.ToolInvocation) ai.Content {
	parts := make([]ai.Part, 0, len(invocations))
	for _, inv := range invocations {
		response := map[string]interface{}{}
		if inv.Error != "" {
			response["error"] = inv.Error
		} else {
			response["output"] = inv.Output
		}
		parts = append(parts, ai.Part{FunctionResponse: &ai.FunctionResponse{Name: inv.Name, Response: response}})
	}
	return ai.Content{Role: "user", Parts: parts}
}

// completedInvocations collects the completed tool invocations of a message.
func completedInvocations(msg *domain.Message) []*domain.ToolInvocation {
	var out []*domain.ToolInvocation
	for i := range msg.Parts {
		if msg.Parts[i].Kind == domain.SegmentKindTool && msg.Parts[i].Tool != nil && msg.Parts[i].Tool.Completed() {
			out = append(out, msg.Parts[i].Tool)
		}
	}
	return out
}
