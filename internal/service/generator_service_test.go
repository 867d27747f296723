package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gymvision/internal/ai"
	"gymvision/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// generateFake scripts non-streaming Generate calls.
type generateFake struct {
	requests []*ai.GenerateRequest
	text     string
	err      error
}

func (g *generateFake) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &ai.GenerateResponse{Candidates: []ai.Candidate{{
		Content: ai.Content{Role: "model", Parts: []ai.Part{{Text: g.text}}},
	}}}, nil
}

func (g *generateFake) Stream(ctx context.Context, req *ai.GenerateRequest) (<-chan ai.StreamEvent, error) {
	return nil, errors.New("not scripted")
}

func TestGenerateWorkoutPersistsDraftWithMarkdownTitle(t *testing.T) {
	repo := newFakeWorkoutRepo()
	gw := &generateFake{text: "# Push Day Blast\n\n## Warm-up\n- 5 min rowing\n\n## Main\n- Bench press 3x8"}
	svc := NewGeneratorService(gw, repo)

	userID := primitive.NewObjectID()
	gymID := primitive.NewObjectID()
	workout, err := svc.GenerateWorkout(context.Background(), userID, GenerateWorkoutInput{
		GymID:     gymID,
		Equipment: []string{"Barbell", "Bench"},
		Goals:     "Build upper body strength",
	})
	require.NoError(t, err)

	assert.Equal(t, "Push Day Blast", workout.Name)
	assert.Equal(t, domain.WorkoutStatusDraft, workout.Status)
	assert.Equal(t, userID, workout.UserID)
	require.NotNil(t, workout.GymID)
	assert.Equal(t, gymID, *workout.GymID)
	assert.False(t, workout.ID.IsZero(), "draft must be persisted")

	// The prompt carries the gym's equipment, not a generic plan request.
	require.Len(t, gw.requests, 1)
	assert.Contains(t, gw.requests[0].Contents[0].Parts[0].Text, "Barbell, Bench")
}

func TestGenerateWorkoutFallbackTitle(t *testing.T) {
	repo := newFakeWorkoutRepo()
	gw := &generateFake{text: "Just do 100 burpees. No heading here."}
	svc := NewGeneratorService(gw, repo)

	workout, err := svc.GenerateWorkout(context.Background(), primitive.NewObjectID(), GenerateWorkoutInput{GymID: primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, "Generated Workout", workout.Name)
}

func TestGenerateWorkoutRequiresGym(t *testing.T) {
	svc := NewGeneratorService(&generateFake{}, newFakeWorkoutRepo())

	_, err := svc.GenerateWorkout(context.Background(), primitive.NewObjectID(), GenerateWorkoutInput{})
	assert.Error(t, err)
}

func TestGenerateWorkoutGatewayError(t *testing.T) {
	gw := &generateFake{err: errors.New("model overloaded")}
	svc := NewGeneratorService(gw, newFakeWorkoutRepo())

	_, err := svc.GenerateWorkout(context.Background(), primitive.NewObjectID(), GenerateWorkoutInput{GymID: primitive.NewObjectID()})
	require.ErrorIs(t, err, ErrGenerationFailed)
}

func TestParseWorkoutLog(t *testing.T) {
	payload, _ := json.Marshal(ParsedWorkoutLog{
		Title:   "Leg Day - Aug 27",
		Content: "## Squats\n- 5x5 at 100kg",
		Date:    "2026-08-27",
	})
	gw := &generateFake{text: string(payload)}
	svc := NewGeneratorService(gw, newFakeWorkoutRepo())

	clientDate := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	parsed, err := svc.ParseWorkoutLog(context.Background(), "yesterday I did 5x5 squats at 100kg", clientDate)
	require.NoError(t, err)

	assert.Equal(t, "Leg Day - Aug 27", parsed.Title)
	assert.Equal(t, "2026-08-27", parsed.Date)

	// Structured output is requested, and the client date anchors
	// relative phrases like "yesterday".
	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	require.NotNil(t, req.GenerationConfig)
	assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)
	require.NotNil(t, req.SystemInstruction)
	assert.Contains(t, req.SystemInstruction.Parts[0].Text, clientDate.Format(time.RFC3339))
}

func TestParseWorkoutLogRejectsEmptyPrompt(t *testing.T) {
	svc := NewGeneratorService(&generateFake{}, newFakeWorkoutRepo())

	_, err := svc.ParseWorkoutLog(context.Background(), "", time.Time{})
	require.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestParseWorkoutLogMalformedOutput(t *testing.T) {
	gw := &generateFake{text: "sorry, I can't do that"}
	svc := NewGeneratorService(gw, newFakeWorkoutRepo())

	_, err := svc.ParseWorkoutLog(context.Background(), "5x5 squats", time.Time{})
	require.ErrorIs(t, err, ErrGenerationFailed)
}

func TestScanGymStripsDataURLPrefix(t *testing.T) {
	payload, _ := json.Marshal(GymScanResult{
		Name:        "Home Garage Gym",
		Description: "Small garage setup",
		Equipment:   []ScannedEquipment{{Name: "Squat rack"}, {Name: "Dumbbells", Notes: "5-30kg"}},
	})
	gw := &generateFake{text: string(payload)}
	svc := NewGeneratorService(gw, newFakeWorkoutRepo())

	result, err := svc.ScanGym(context.Background(), "data:image/jpeg;base64,AAAA", "my garage")
	require.NoError(t, err)
	assert.Equal(t, "Home Garage Gym", result.Name)
	require.Len(t, result.Equipment, 2)

	require.Len(t, gw.requests, 1)
	parts := gw.requests[0].Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "AAAA", parts[1].InlineData.Data)
}

func TestScanGymRequiresSomeInput(t *testing.T) {
	svc := NewGeneratorService(&generateFake{}, newFakeWorkoutRepo())

	_, err := svc.ScanGym(context.Background(), "", "")
	require.ErrorIs(t, err, ErrScanInputMissing)
}
