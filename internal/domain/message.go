package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// SegmentKind discriminates the two kinds of message segments.
type SegmentKind string

const (
	SegmentKindText SegmentKind = "text"
	SegmentKindTool SegmentKind = "tool"
)

// ToolState is the lifecycle state of a tool invocation within a segment.
//
// Transitions are strictly forward: requested -> ready -> completed.
type ToolState string

const (
	// ToolStateRequested: the model has named the tool, input may still
	// be streaming in.
	ToolStateRequested ToolState = "requested"
	// ToolStateReady: input is finalized but the tool has not executed.
	ToolStateReady ToolState = "ready"
	// ToolStateCompleted: output or an error string is attached.
	ToolStateCompleted ToolState = "completed"
)

// ToolInvocation records one schema-constrained tool call made by the
// assistant, including its resolved result or error.
type ToolInvocation struct {
	ID     string                 `bson:"id" json:"id"`
	Name   string                 `bson:"name" json:"name"`
	State  ToolState              `bson:"state" json:"state"`
	Input  map[string]interface{} `bson:"input,omitempty" json:"input,omitempty"`
	Output string                 `bson:"output,omitempty" json:"output,omitempty"`
	Error  string                 `bson:"error,omitempty" json:"error,omitempty"`
}

// Completed reports whether the invocation has reached its terminal state.
func (t *ToolInvocation) Completed() bool {
	return t.State == ToolStateCompleted
}

// Complete attaches the tool's result (or error text) and moves the
// invocation to its terminal state.
func (t *ToolInvocation) Complete(output, errText string) {
	t.Output = output
	t.Error = errText
	t.State = ToolStateCompleted
}

// Segment is one unit within a message: either a raw text segment or a
// tool-invocation record. Exactly one of Text/Tool is meaningful,
// selected by Kind.
type Segment struct {
	Kind SegmentKind     `bson:"kind" json:"kind"`
	Text string          `bson:"text,omitempty" json:"text,omitempty"`
	Tool *ToolInvocation `bson:"tool,omitempty" json:"tool,omitempty"`
}

// TextSegment builds a text segment.
func TextSegment(text string) Segment {
	return Segment{Kind: SegmentKindText, Text: text}
}

// ToolSegment builds a tool segment around an invocation.
func ToolSegment(inv *ToolInvocation) Segment {
	return Segment{Kind: SegmentKindTool, Tool: inv}
}

// Message is a single entry in a workout's coaching transcript. Parts
// preserve the exact order in which the model emitted them.
type Message struct {
	ID        string      `bson:"id" json:"id"`
	Role      MessageRole `bson:"role" json:"role"`
	Parts     []Segment   `bson:"parts" json:"parts"`
	CreatedAt time.Time   `bson:"createdAt" json:"createdAt"`
}

// NewMessageID returns a transcript-unique message identifier.
// Mirrors the "msg_" prefix the web client already expects.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

// NewToolCallID returns an identifier for a single tool invocation.
func NewToolCallID() string {
	return "call_" + uuid.NewString()
}

// Final reports whether the message is complete: a message with any
// tool invocation still pending is not final and must not be persisted.
func (m *Message) Final() bool {
	for i := range m.Parts {
		if m.Parts[i].Kind == SegmentKindTool {
			if m.Parts[i].Tool == nil || !m.Parts[i].Tool.Completed() {
				return false
			}
		}
	}
	return true
}

// Text concatenates the message's text segments in order.
func (m *Message) Text() string {
	var out string
	for i := range m.Parts {
		if m.Parts[i].Kind == SegmentKindText {
			out += m.Parts[i].Text
		}
	}
	return out
}
