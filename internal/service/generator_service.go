package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gymvision/internal/ai"
	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrGenerationFailed = errors.New("workout generation failed")
	ErrScanInputMissing = errors.New("an image or a description is required")
	ErrEmptyPrompt      = errors.New("prompt is required")
)

// GenerateWorkoutInput carries the context for AI workout generation.
type GenerateWorkoutInput struct {
	GymID           primitive.ObjectID
	Equipment       []string
	Goals           string
	ExperienceLevel string
}

// ParsedWorkoutLog is the structured result of parsing a natural
// language workout description.
type ParsedWorkoutLog struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"` // ISO 8601 (YYYY-MM-DD)
}

// ScannedEquipment is one piece of equipment recognized in a gym photo.
type ScannedEquipment struct {
	Name  string `json:"name"`
	Notes string `json:"notes,omitempty"`
}

// GymScanResult is the structured result of analyzing a gym photo
// and/or description.
type GymScanResult struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Equipment   []ScannedEquipment `json:"equipment"`
}

// GeneratorService covers the non-conversational AI features: workout
// generation, natural language workout logging, and gym scanning.
type GeneratorService interface {
	// GenerateWorkout creates a full markdown workout plan from the
	// gym's equipment and the user's goals, and persists it as a draft.
	GenerateWorkout(ctx context.Context, userID primitive.ObjectID, input GenerateWorkoutInput) (*domain.Workout, error)

	// ParseWorkoutLog turns a natural language description ("yesterday I
	// did 5x5 squats...") into a structured workout, resolving relative
	// dates against the client's current date.
	ParseWorkoutLog(ctx context.Context, prompt string, clientDate time.Time) (*ParsedWorkoutLog, error)

	// ScanGym analyzes a gym photo (base64) and/or free-form description
	// and returns a name, description and detected equipment.
	ScanGym(ctx context.Context, imageBase64, description string) (*GymScanResult, error)
}

// generatorService implements the GeneratorService interface.
type generatorService struct {
	gateway     ai.Gateway
	workoutRepo repository.WorkoutRepository
}

// NewGeneratorService creates a new instance of generatorService.
func NewGeneratorService(gateway ai.Gateway, workoutRepo repository.WorkoutRepository) GeneratorService {
	return &generatorService{
		gateway:     gateway,
		workoutRepo: workoutRepo,
	}
}

// markdownTitleRe matches the first markdown heading of the plan.
var markdownTitleRe = regexp.MustCompile(`(?m)^#+\s+(.+)$`)

// dataURLPrefixRe strips a data-URL prefix off base64 image payloads.
var dataURLPrefixRe = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,`)

// GenerateWorkout builds the equipment/goal prompt, runs one
// non-streaming model call and persists the result as a draft workout.
func (s *generatorService) GenerateWorkout(ctx context.Context, userID primitive.ObjectID, input GenerateWorkoutInput) (*domain.Workout, error) {
	if input.GymID == primitive.NilObjectID {
		return nil, errors.New("gym ID is required")
	}

	equipmentList := "Bodyweight only"
	if len(input.Equipment) > 0 {
		equipmentList = strings.Join(input.Equipment, ", ")
	}
	goals := input.Goals
	if goals == "" {
		goals = "General fitness"
	}
	experience := input.ExperienceLevel
	if experience == "" {
		experience = "Intermediate"
	}

	prompt := fmt.Sprintf(`Create a complete workout session.

**Context:**
- Available Equipment: %s
- User Goals: %s
- Experience Level: %s

**Instructions:**
1. Start with a warm-up.
2. List exercises with sets and reps.
3. Explain *why* this workout fits the equipment.
4. Keep it concise but motivating.
5. Format using Markdown.`, equipmentList, goals, experience)

	resp, err := s.gateway.Generate(ctx, &ai.GenerateRequest{
		SystemInstruction: &ai.Content{Parts: []ai.Part{{
			Text: "You are an expert fitness coach. Create workouts based strictly on available equipment. Return ONLY the workout plan in Markdown format. Start with a clear title.",
		}}},
		Contents: []ai.Content{{Role: "user", Parts: []ai.Part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrGenerationFailed
	}

	name := "Generated Workout"
	if m := markdownTitleRe.FindStringSubmatch(text); m != nil {
		name = strings.TrimSpace(m[1])
	}

	workout := &domain.Workout{
		UserID:      userID,
		GymID:       &input.GymID,
		Name:        name,
		Description: text,
		Status:      domain.WorkoutStatusDraft,
		Date:        time.Now().UTC(),
	}
	id, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}
	workout.ID = id
	return workout, nil
}

// ParseWorkoutLog asks the model for structured output describing the
// logged workout.
func (s *generatorService) ParseWorkoutLog(ctx context.Context, prompt string, clientDate time.Time) (*ParsedWorkoutLog, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if clientDate.IsZero() {
		clientDate = time.Now().UTC()
	}

	system := fmt.Sprintf(`You are an intelligent fitness assistant.
Your goal is to parse natural language descriptions of workouts into structured data.

Current Date (Client): %s

Instructions:
1. Analyze the user's input to understand the exercises, sets, reps, and any other details.
2. Determine the date of the workout. Context clues like "yesterday", "last monday", "aug 25" should be used relative to the "Current Date".
    - If no date is specified, assume today (Current Date).
3. Create a Markdown formatted description of the workout. Use headers, bullets, and bold text for readability.
4. Generate a concise title.`, clientDate.Format(time.RFC3339))

	resp, err := s.gateway.Generate(ctx, &ai.GenerateRequest{
		SystemInstruction: &ai.Content{Parts: []ai.Part{{Text: system}}},
		Contents:          []ai.Content{{Role: "user", Parts: []ai.Part{{Text: prompt}}}},
		GenerationConfig: &ai.GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &ai.Schema{
				Type: "object",
				Properties: map[string]*ai.Schema{
					"title":   {Type: "string", Description: `A short, descriptive title for the workout (e.g., "Full Body - Aug 25")`},
					"content": {Type: "string", Description: "The full workout details formatted in Markdown. Include exercises, sets, reps, user notes, etc."},
					"date":    {Type: "string", Description: "The date of the workout in ISO 8601 format (YYYY-MM-DD). Calculate this based on the user prompt relative to the current date provided."},
				},
				Required: []string{"title", "content", "date"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var parsed ParsedWorkoutLog
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed structured output: %v", ErrGenerationFailed, err)
	}
	return &parsed, nil
}

// ScanGym analyzes a gym photo and/or text description.
func (s *generatorService) ScanGym(ctx context.Context, imageBase64, description string) (*GymScanResult, error) {
	if imageBase64 == "" && description == "" {
		return nil, ErrScanInputMissing
	}

	promptParts := []string{
		"Analyze this gym input to identify the gym type (Home, Commercial, etc.) and list all visible workout equipment.",
		"If a text description is provided, use it to infer equipment and craft a concise description.",
		"Be thorough and consistent with the input.",
	}
	if description != "" {
		promptParts = append(promptParts, "User description: "+description)
	}

	parts := []ai.Part{{Text: strings.Join(promptParts, " ")}}
	if imageBase64 != "" {
		parts = append(parts, ai.Part{InlineData: &ai.InlineData{
			MIMEType: "image/jpeg",
			Data:     dataURLPrefixRe.ReplaceAllString(imageBase64, ""),
		}})
	}

	resp, err := s.gateway.Generate(ctx, &ai.GenerateRequest{
		Contents: []ai.Content{{Role: "user", Parts: parts}},
		GenerationConfig: &ai.GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &ai.Schema{
				Type: "object",
				Properties: map[string]*ai.Schema{
					"name":        {Type: "string", Description: "A suitable name for this gym location based on the image"},
					"description": {Type: "string", Description: "A brief description of the space"},
					"equipment": {
						Type: "array",
						Items: &ai.Schema{
							Type: "object",
							Properties: map[string]*ai.Schema{
								"name":  {Type: "string", Description: "Name of the equipment"},
								"notes": {Type: "string", Description: "Details like weight range, brand, or type"},
							},
							Required: []string{"name"},
						},
					},
				},
				Required: []string{"name", "description", "equipment"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var result GymScanResult
	if err := json.Unmarshal([]byte(resp.Text()), &result); err != nil {
		return nil, fmt.Errorf("%w: malformed structured output: %v", ErrGenerationFailed, err)
	}
	return &result, nil
}
