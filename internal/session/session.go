package session

import (
	"agridetect/internal/diagnose"
	"agridetect/internal/llmclient"
	"sync"
)

// Phase is the discrete state of a diagnosis session.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseIdentifying Phase = "identifying"
	PhaseIdentified  Phase = "identified"
	PhaseDiagnosing  Phase = "diagnosing"
	PhaseDiagnosed   Phase = "diagnosed"
	PhaseError       Phase = "error"
)

// Apology is appended as a synthetic assistant turn when the follow-up step
// fails; conversational continuity is preserved instead of surfacing a hard
// error.
const Apology = "Sorry, I'm having trouble thinking right now. Please try again in a moment."

// User-facing error messages. The error phase carries exactly one of these;
// transport and semantic failures differ by message text only.
const (
	msgNoImage        = "Please select an image first."
	msgNoPlant        = "We couldn't detect a plant in the image. Please try a different photo."
	msgIdentifyFailed = "An error occurred during plant identification. Please try again."
	msgUnclearImage   = "Could not complete the diagnosis. The image may be unclear."
	msgDiagnoseFailed = "An error occurred during diagnosis. Please try again."
	msgStartOver      = "An error occurred. Please start over."
)

// Session aggregates one image, the identification and diagnosis results,
// and the chat transcript. It is owned by the Manager and only mutated under
// its own lock; the generation counter invalidates in-flight results that
// resolve after a reset.
type Session struct {
	mu         sync.Mutex
	id         string
	generation uint64

	image    llmclient.Image
	imageURI string

	identity  *diagnose.PlantIdentity
	diagnosis *diagnose.DiagnosisResult
	chat      []diagnose.ChatTurn

	phase    Phase
	errMsg   string
	chatBusy bool
}

// resetLocked returns the session to idle and advances the generation so
// that any in-flight call resolves stale. Callers must hold s.mu.
func (s *Session) resetLocked() {
	s.generation++
	s.image = llmclient.Image{}
	s.imageURI = ""
	s.identity = nil
	s.diagnosis = nil
	s.chat = nil
	s.phase = PhaseIdle
	s.errMsg = ""
	s.chatBusy = false
}

// Snapshot is an immutable view of a session handed to the transport layer.
type Snapshot struct {
	ID        string                     `json:"sessionId"`
	Phase     Phase                      `json:"phase"`
	Error     string                     `json:"error,omitempty"`
	HasImage  bool                       `json:"hasImage"`
	Identity  *diagnose.PlantIdentity    `json:"identity,omitempty"`
	Diagnosis *diagnose.DiagnosisResult  `json:"diagnosis,omitempty"`
	Chat      []diagnose.ChatTurn        `json:"chat,omitempty"`
	ChatBusy  bool                       `json:"chatBusy"`
}

// snapshotLocked copies the visible state. Callers must hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Phase:    s.phase,
		Error:    s.errMsg,
		HasImage: len(s.image.Data) > 0,
		ChatBusy: s.chatBusy,
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	if s.diagnosis != nil {
		d := *s.diagnosis
		d.DiseaseDiagnoses = append([]diagnose.DiagnosisRecord(nil), s.diagnosis.DiseaseDiagnoses...)
		snap.Diagnosis = &d
	}
	if len(s.chat) > 0 {
		snap.Chat = append([]diagnose.ChatTurn(nil), s.chat...)
	}
	return snap
}
