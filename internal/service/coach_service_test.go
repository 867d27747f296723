package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gymvision/internal/ai"
	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Fakes ---

// fakeGateway replays scripted event streams, one script per Stream call.
type fakeGateway struct {
	mu        sync.Mutex
	scripts   [][]ai.StreamEvent
	requests  []*ai.GenerateRequest
	streamErr error
}

func (g *fakeGateway) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, errors.New("not scripted")
}

func (g *fakeGateway) Stream(ctx context.Context, req *ai.GenerateRequest) (<-chan ai.StreamEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Snapshot contents: the caller keeps appending to the same request.
	snapshot := &ai.GenerateRequest{
		SystemInstruction: req.SystemInstruction,
		Contents:          append([]ai.Content(nil), req.Contents...),
		Tools:             req.Tools,
	}
	g.requests = append(g.requests, snapshot)

	if g.streamErr != nil {
		return nil, g.streamErr
	}
	if len(g.scripts) == 0 {
		return nil, errors.New("no script left")
	}
	script := g.scripts[0]
	g.scripts = g.scripts[1:]

	ch := make(chan ai.StreamEvent, len(script))
	for _, ev := range script {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (g *fakeGateway) streamCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type planUpdate struct {
	name        *string
	description string
}

// fakeWorkoutRepo is an in-memory WorkoutRepository.
type fakeWorkoutRepo struct {
	mu            sync.Mutex
	workouts      map[primitive.ObjectID]*domain.Workout
	planUpdates   []planUpdate
	updatePlanErr error
	replaceErr    error
	replaceCalls  int
	transcripts   map[primitive.ObjectID][]domain.Message
}

func newFakeWorkoutRepo(workouts ...*domain.Workout) *fakeWorkoutRepo {
	r := &fakeWorkoutRepo{
		workouts:    make(map[primitive.ObjectID]*domain.Workout),
		transcripts: make(map[primitive.ObjectID][]domain.Message),
	}
	for _, w := range workouts {
		r.workouts[w.ID] = w
	}
	return r
}

func (r *fakeWorkoutRepo) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if workout.ID.IsZero() {
		workout.ID = primitive.NewObjectID()
	}
	r.workouts[workout.ID] = workout
	return workout.ID, nil
}

func (r *fakeWorkoutRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (r *fakeWorkoutRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	return nil, nil
}

func (r *fakeWorkoutRepo) UpdateStatus(ctx context.Context, id, userID primitive.ObjectID, status domain.WorkoutStatus) error {
	return nil
}

func (r *fakeWorkoutRepo) UpdatePlan(ctx context.Context, id primitive.ObjectID, name *string, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updatePlanErr != nil {
		return r.updatePlanErr
	}
	w, ok := r.workouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.planUpdates = append(r.planUpdates, planUpdate{name: name, description: description})
	w.Description = description
	if name != nil {
		w.Name = *name
	}
	return nil
}

func (r *fakeWorkoutRepo) ReplaceTranscript(ctx context.Context, id primitive.ObjectID, transcript []domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceCalls++
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.transcripts[id] = transcript
	return nil
}

func (r *fakeWorkoutRepo) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	return nil
}

func (r *fakeWorkoutRepo) savedTranscript(id primitive.ObjectID) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcripts[id]
}

func (r *fakeWorkoutRepo) replaceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceCalls
}

// --- Helpers ---

func testWorkout(userID primitive.ObjectID) *domain.Workout {
	return &domain.Workout{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Name:        "Leg Day",
		Description: "3x10 squats",
		Status:      domain.WorkoutStatusPlanned,
		Date:        time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
	}
}

func userMessage(text string) domain.Message {
	return domain.Message{
		ID:        domain.NewMessageID(),
		Role:      domain.MessageRoleUser,
		Parts:     []domain.Segment{domain.TextSegment(text)},
		CreatedAt: time.Now().UTC(),
	}
}

func collectEvents(t *testing.T, ch <-chan CoachEvent) []CoachEvent {
	t.Helper()
	var events []CoachEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for coach events")
		}
	}
}

func eventKinds(events []CoachEvent) []CoachEventKind {
	kinds := make([]CoachEventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// --- Validation ---

func TestStreamTurnRejectsEmptyTranscript(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	gw := &fakeGateway{}
	svc := NewCoachService(newFakeWorkoutRepo(workout), gw, time.Minute)

	_, err := svc.StreamTurn(context.Background(), userID, workout.ID, nil)

	require.ErrorIs(t, err, ErrInvalidTurnRequest)
	assert.Equal(t, 0, gw.streamCalls(), "gateway must not be contacted for an invalid request")
}

func TestStreamTurnRejectsTranscriptNotEndingInUserMessage(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	svc := NewCoachService(newFakeWorkoutRepo(workout), &fakeGateway{}, time.Minute)

	transcript := []domain.Message{
		userMessage("hello"),
		{ID: domain.NewMessageID(), Role: domain.MessageRoleAssistant, Parts: []domain.Segment{domain.TextSegment("hi")}},
	}
	_, err := svc.StreamTurn(context.Background(), userID, workout.ID, transcript)

	require.ErrorIs(t, err, ErrInvalidTurnRequest)
}

func TestStreamTurnRejectsNilWorkoutID(t *testing.T) {
	svc := NewCoachService(newFakeWorkoutRepo(), &fakeGateway{}, time.Minute)

	_, err := svc.StreamTurn(context.Background(), primitive.NewObjectID(), primitive.NilObjectID, []domain.Message{userMessage("hi")})

	require.ErrorIs(t, err, ErrInvalidTurnRequest)
}

func TestStreamTurnUnknownWorkout(t *testing.T) {
	svc := NewCoachService(newFakeWorkoutRepo(), &fakeGateway{}, time.Minute)

	_, err := svc.StreamTurn(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), []domain.Message{userMessage("hi")})

	require.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestStreamTurnForeignWorkoutLooksUnknown(t *testing.T) {
	owner := primitive.NewObjectID()
	workout := testWorkout(owner)
	svc := NewCoachService(newFakeWorkoutRepo(workout), &fakeGateway{}, time.Minute)

	_, err := svc.StreamTurn(context.Background(), primitive.NewObjectID(), workout.ID, []domain.Message{userMessage("hi")})

	require.ErrorIs(t, err, ErrWorkoutNotFound)
}

// --- Plain text turn ---

func TestStreamTurnTextOnly(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{{
		{TextDelta: "Squats build "},
		{TextDelta: "your whole lower body."},
		{Done: true},
	}}}
	svc := NewCoachService(repo, gw, time.Minute)

	transcript := []domain.Message{userMessage("Why squats?")}
	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, transcript)
	require.NoError(t, err)

	events := collectEvents(t, ch)
	assert.Equal(t, []CoachEventKind{CoachEventTextDelta, CoachEventTextDelta, CoachEventFinish}, eventKinds(events))
	assert.Equal(t, "Squats build ", events[0].Text)
	assert.Equal(t, events[0].MessageID, events[1].MessageID)

	// One durable append containing the whole enlarged history.
	assert.Equal(t, 1, repo.replaceCount())
	saved := repo.savedTranscript(workout.ID)
	require.Len(t, saved, 2)
	assert.Equal(t, domain.MessageRoleUser, saved[0].Role)
	assert.Equal(t, domain.MessageRoleAssistant, saved[1].Role)
	assert.Equal(t, "Squats build your whole lower body.", saved[1].Text())
	assert.True(t, saved[1].Final())
}

// --- Tool flow ---

func TestStreamTurnToolFlow(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{
		{
			{TextDelta: "Sure, swapping squats for lunges."},
			{FunctionCall: &ai.FunctionCall{
				Name: updateWorkoutToolName,
				Args: map[string]interface{}{"newDescription": "3x10 lunges"},
			}},
			{Done: true},
		},
		{
			{TextDelta: "Done! Your plan now uses lunges."},
			{Done: true},
		},
	}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("Swap squats for lunges")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Equal(t, []CoachEventKind{
		CoachEventTextDelta,
		CoachEventToolCall,
		CoachEventToolResult,
		CoachEventTextDelta,
		CoachEventFinish,
	}, eventKinds(events))

	// The call is surfaced with finalized input, then resolved in place.
	call := events[1].Tool
	require.NotNil(t, call)
	assert.Equal(t, updateWorkoutToolName, call.Name)
	result := events[2].Tool
	require.NotNil(t, result)
	assert.True(t, result.Completed())
	assert.Equal(t, toolSuccessOutput, result.Output)
	assert.Empty(t, result.Error)

	// The store write happened synchronously, inside the turn.
	require.Len(t, repo.planUpdates, 1)
	assert.Nil(t, repo.planUpdates[0].name)
	assert.Equal(t, "3x10 lunges", repo.planUpdates[0].description)

	// Second model call carries the assistant turn and the tool result.
	require.Equal(t, 2, gw.streamCalls())
	second := gw.requests[1]
	require.Len(t, second.Contents, 3)
	assert.Equal(t, "model", second.Contents[1].Role)
	require.NotEmpty(t, second.Contents[2].Parts)
	fr := second.Contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, toolSuccessOutput, fr.Response["output"])

	// One append; both assistant messages are final.
	assert.Equal(t, 1, repo.replaceCount())
	saved := repo.savedTranscript(workout.ID)
	require.Len(t, saved, 3)
	assert.True(t, saved[1].Final())
	assert.True(t, saved[2].Final())
	assert.Equal(t, "Done! Your plan now uses lunges.", saved[2].Text())
}

func TestStreamTurnToolUpdatesTitleWhenProvided(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{
		{
			{FunctionCall: &ai.FunctionCall{
				Name: updateWorkoutToolName,
				Args: map[string]interface{}{"newTitle": "Lunge Day", "newDescription": "3x10 lunges"},
			}},
			{Done: true},
		},
		{
			{TextDelta: "Renamed and rewritten."},
			{Done: true},
		},
	}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("Rename it too")})
	require.NoError(t, err)
	collectEvents(t, ch)

	require.Len(t, repo.planUpdates, 1)
	require.NotNil(t, repo.planUpdates[0].name)
	assert.Equal(t, "Lunge Day", *repo.planUpdates[0].name)
}

func TestStreamTurnToolExecutionFailureIsRecordedNotFatal(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	repo.updatePlanErr = errors.New("write conflict")
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{
		{
			{FunctionCall: &ai.FunctionCall{
				Name: updateWorkoutToolName,
				Args: map[string]interface{}{"newDescription": "3x10 lunges"},
			}},
			{Done: true},
		},
		{
			{TextDelta: "I could not update the plan, sorry."},
			{Done: true},
		},
	}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("Swap it")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Equal(t, CoachEventFinish, events[len(events)-1].Kind, "a failed tool must not abort the turn")

	var result *domain.ToolInvocation
	for _, ev := range events {
		if ev.Kind == CoachEventToolResult {
			result = ev.Tool
		}
	}
	require.NotNil(t, result)
	assert.True(t, result.Completed())
	assert.Equal(t, "write conflict", result.Error)
	assert.Empty(t, result.Output)

	// The error is fed back to the model, and the turn is still persisted.
	require.Equal(t, 2, gw.streamCalls())
	fr := gw.requests[1].Contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "write conflict", fr.Response["error"])
	assert.Equal(t, 1, repo.replaceCount())
}

func TestStreamTurnRejectsUnknownTool(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{
		{
			{FunctionCall: &ai.FunctionCall{Name: "deleteEverything", Args: map[string]interface{}{}}},
			{Done: true},
		},
		{
			{TextDelta: "Let me stick to what I can do."},
			{Done: true},
		},
	}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("wipe my data")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	var result *domain.ToolInvocation
	for _, ev := range events {
		if ev.Kind == CoachEventToolResult {
			result = ev.Tool
		}
	}
	require.NotNil(t, result)
	assert.Contains(t, result.Error, "unknown tool")
	assert.Empty(t, repo.planUpdates, "no store write may happen for an undeclared tool")
}

func TestStreamTurnRequiresNewDescription(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{
		{
			{FunctionCall: &ai.FunctionCall{
				Name: updateWorkoutToolName,
				Args: map[string]interface{}{"newTitle": "Lunge Day"},
			}},
			{Done: true},
		},
		{
			{TextDelta: "I need a full plan body to update."},
			{Done: true},
		},
	}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("rename only")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	var result *domain.ToolInvocation
	for _, ev := range events {
		if ev.Kind == CoachEventToolResult {
			result = ev.Tool
		}
	}
	require.NotNil(t, result)
	assert.Equal(t, "newDescription is required", result.Error)
	assert.Empty(t, repo.planUpdates)
}

// --- Failure paths ---

func TestStreamTurnGatewayErrorMidStreamSkipsAppend(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{{
		{TextDelta: "Here is what "},
		{TextDelta: "I would sugg"},
		{Err: errors.New("upstream disconnected")},
	}}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("advice?")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Equal(t, []CoachEventKind{CoachEventTextDelta, CoachEventTextDelta, CoachEventError}, eventKinds(events))
	assert.Contains(t, events[2].Error, "upstream disconnected")

	// Partial output was visible to the client, but nothing is persisted.
	assert.Equal(t, 0, repo.replaceCount())
	assert.Empty(t, repo.savedTranscript(workout.ID))
}

func TestStreamTurnStreamSetupErrorSkipsAppend(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{streamErr: errors.New("503 model overloaded")}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("hello")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, CoachEventError, events[0].Kind)
	assert.Equal(t, 0, repo.replaceCount())
}

func TestStreamTurnPersistFailureStillFinishes(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	repo.replaceErr = errors.New("mongo down")
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{{
		{TextDelta: "Keep your back straight."},
		{Done: true},
	}}}
	svc := NewCoachService(repo, gw, time.Minute)

	ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("form tips")})
	require.NoError(t, err)

	events := collectEvents(t, ch)
	assert.Equal(t, CoachEventFinish, events[len(events)-1].Kind,
		"the user already saw the full answer; a failed save is logged, not re-surfaced")
	assert.Equal(t, 1, repo.replaceCount())
}

// --- Concurrency ---

func TestStreamTurnSerializesTurnsOnSameWorkout(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	gw := &fakeGateway{scripts: [][]ai.StreamEvent{
		{{TextDelta: "First answer."}, {Done: true}},
		{{TextDelta: "Second answer."}, {Done: true}},
	}}
	svc := NewCoachService(repo, gw, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := svc.StreamTurn(context.Background(), userID, workout.ID, []domain.Message{userMessage("go")})
			if err != nil {
				t.Error(err)
				return
			}
			for range ch {
			}
		}()
	}
	wg.Wait()

	// Each turn ran to completion and performed its own single append.
	assert.Equal(t, 2, repo.replaceCount())
	assert.Equal(t, 2, gw.streamCalls())
}

// hangingGateway emits one delta and then keeps the stream open until
// the caller's context is cancelled.
type hangingGateway struct{}

func (hangingGateway) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, errors.New("not scripted")
}

func (hangingGateway) Stream(ctx context.Context, req *ai.GenerateRequest) (<-chan ai.StreamEvent, error) {
	ch := make(chan ai.StreamEvent)
	go func() {
		defer close(ch)
		ch <- ai.StreamEvent{TextDelta: "Starting with a warm"}
		<-ctx.Done()
	}()
	return ch, nil
}

func TestStreamTurnCancelledContextSkipsAppend(t *testing.T) {
	userID := primitive.NewObjectID()
	workout := testWorkout(userID)
	repo := newFakeWorkoutRepo(workout)
	svc := NewCoachService(repo, hangingGateway{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := svc.StreamTurn(ctx, userID, workout.ID, []domain.Message{userMessage("plan please")})
	require.NoError(t, err)

	// Cancel once the first delta proves the stream is live.
	first := <-ch
	assert.Equal(t, CoachEventTextDelta, first.Kind)
	cancel()

	collectEvents(t, ch)
	assert.Equal(t, 0, repo.replaceCount(), "a cancelled turn must never persist a half-turn")
}
