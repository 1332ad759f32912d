package services

import (
	"errors"
	"fmt"
)

// ErrBadGesture is returned for a drag event that is not valid in the current phase.
var ErrBadGesture = errors.New("invalid drag gesture")

// GesturePhase is the state of a drag interaction.
type GesturePhase string

const (
	GestureIdle      GesturePhase = "idle"
	GestureDragging  GesturePhase = "dragging"
	GestureResolving GesturePhase = "resolving"
)

type gestureEvent string

const (
	eventBegin  gestureEvent = "begin"
	eventOver   gestureEvent = "over"
	eventEnd    gestureEvent = "end"
	eventFinish gestureEvent = "finish"
	eventCancel gestureEvent = "cancel"
)

// gestureTransitions is the complete transition table; anything missing is rejected.
var gestureTransitions = map[GesturePhase]map[gestureEvent]GesturePhase{
	GestureIdle: {
		eventBegin: GestureDragging,
	},
	GestureDragging: {
		eventOver:   GestureDragging,
		eventEnd:    GestureResolving,
		eventCancel: GestureIdle,
	},
	GestureResolving: {
		eventFinish: GestureIdle,
	},
}

// Gesture tracks one drag from begin through resolution.
type Gesture struct {
	Phase    GesturePhase `json:"phase"`
	TaskID   string       `json:"taskId,omitempty"`
	OverZone string       `json:"overZone,omitempty"`
}

func newGesture() Gesture {
	return Gesture{Phase: GestureIdle}
}

// apply moves the gesture along the transition table. Events after begin
// must name the task being dragged.
func (g *Gesture) apply(event gestureEvent, taskID, zone string) error {
	next, ok := gestureTransitions[g.Phase][event]
	if !ok {
		return fmt.Errorf("%w: %s while %s", ErrBadGesture, event, g.Phase)
	}

	switch event {
	case eventBegin:
		if taskID == "" {
			return fmt.Errorf("%w: begin without a task", ErrBadGesture)
		}
		g.TaskID = taskID
		g.OverZone = ""
	case eventOver, eventEnd:
		if taskID != g.TaskID {
			return fmt.Errorf("%w: %s for %s while dragging %s", ErrBadGesture, event, taskID, g.TaskID)
		}
		g.OverZone = zone
	case eventFinish, eventCancel:
		g.TaskID = ""
		g.OverZone = ""
	}

	g.Phase = next
	return nil
}
