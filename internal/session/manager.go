package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"agridetect/internal/diagnose"
	"agridetect/internal/llmclient"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrConflict    = errors.New("operation not allowed in the current phase")
	ErrChatBusy    = errors.New("a follow-up question is already in flight")
	ErrNoDiagnosis = errors.New("no diagnosis available")
)

// Identifier recognizes the plant on an image.
type Identifier interface {
	Identify(ctx context.Context, img llmclient.Image) (diagnose.PlantIdentity, error)
}

// Diagnoser produces disease hypotheses for a named plant.
type Diagnoser interface {
	Diagnose(ctx context.Context, img llmclient.Image, plantName string) (diagnose.DiagnosisResult, error)
}

// Asker answers a follow-up question grounded on a fixed diagnosis context.
type Asker interface {
	Ask(ctx context.Context, req diagnose.AssistantRequest) (string, error)
}

type Config struct {
	Identifier    Identifier
	Diagnoser     Diagnoser
	Assistant     Asker
	MaxImageBytes int64

	// MaxSessions and TTL bound the in-memory session cache.
	MaxSessions int
	TTL         time.Duration
}

// Manager owns all live sessions and drives each one through the
// identify -> diagnose -> converse pipeline. At most one pipeline step is in
// flight per session, enforced by phase gating; the chat step is gated
// separately so it can coexist with a settled diagnosis.
type Manager struct {
	identifier    Identifier
	diagnoser     Diagnoser
	assistant     Asker
	maxImageBytes int64
	sessions      *expirable.LRU[string, *Session]
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Manager{
		identifier:    cfg.Identifier,
		diagnoser:     cfg.Diagnoser,
		assistant:     cfg.Assistant,
		maxImageBytes: cfg.MaxImageBytes,
		sessions:      expirable.NewLRU[string, *Session](cfg.MaxSessions, nil, cfg.TTL),
	}
}

// Create starts a fresh idle session and returns its snapshot.
func (m *Manager) Create() Snapshot {
	s := &Session{id: uuid.NewString(), phase: PhaseIdle}
	m.sessions.Add(s.id, s)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (m *Manager) get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// LoadImage validates and stores a new photo. The size bound is checked
// before the session is touched: an oversized image is rejected without any
// phase transition. Loading a valid image always resets the session first;
// there is no "revise current session" path.
func (m *Manager) LoadImage(id, photoDataURI string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	img, err := diagnose.ParseDataURI(photoDataURI, m.maxImageBytes)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.snapshotLocked(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.image = img
	s.imageURI = photoDataURI
	return s.snapshotLocked(), nil
}

// Start runs the identification step. Only valid from idle; a missing image
// moves the session to the error phase directly.
func (m *Manager) Start(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.phase != PhaseIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConflict
	}
	if len(s.image.Data) == 0 {
		s.phase = PhaseError
		s.errMsg = msgNoImage
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	gen := s.generation
	img := s.image
	s.phase = PhaseIdentifying
	s.errMsg = ""
	s.mu.Unlock()

	identity, err := m.identifier.Identify(ctx, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// The session was reset while the call was in flight; drop the result.
		return s.snapshotLocked(), nil
	}
	switch {
	case err != nil:
		s.phase = PhaseError
		s.errMsg = msgIdentifyFailed
	case identity.IsPlant:
		s.identity = &identity
		s.phase = PhaseIdentified
	default:
		s.phase = PhaseError
		s.errMsg = msgNoPlant
	}
	return s.snapshotLocked(), nil
}

// Diagnose runs the disease step. Only valid from identified.
func (m *Manager) Diagnose(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.phase != PhaseIdentified {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConflict
	}
	if len(s.image.Data) == 0 || s.identity == nil {
		s.phase = PhaseError
		s.errMsg = msgStartOver
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	gen := s.generation
	img := s.image
	plantName := s.identity.CommonName
	s.phase = PhaseDiagnosing
	s.errMsg = ""
	s.mu.Unlock()

	result, err := m.diagnoser.Diagnose(ctx, img, plantName)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return s.snapshotLocked(), nil
	}
	switch {
	case err != nil:
		s.phase = PhaseError
		s.errMsg = msgDiagnoseFailed
	case result.Usable():
		s.diagnosis = &result
		s.phase = PhaseDiagnosed
	default:
		s.phase = PhaseError
		s.errMsg = msgUnclearImage
	}
	return s.snapshotLocked(), nil
}

// Ask sends one follow-up question. Only valid once diagnosed; overlapping
// questions are rejected via the chat-busy flag. The assistant is grounded
// on the first ranked diagnosis only, trading completeness for a single
// stable topic of conversation. A step failure appends the fixed apology
// turn instead of entering the error phase.
func (m *Manager) Ask(ctx context.Context, id, question string) (string, Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return "", Snapshot{}, err
	}

	s.mu.Lock()
	if s.phase != PhaseDiagnosed || s.diagnosis == nil || len(s.diagnosis.DiseaseDiagnoses) == 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return "", snap, ErrNoDiagnosis
	}
	if s.chatBusy {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return "", snap, ErrChatBusy
	}
	first := s.diagnosis.DiseaseDiagnoses[0]
	plantType := "the plant"
	if s.identity != nil && s.identity.CommonName != "" {
		plantType = s.identity.CommonName
	}
	// History excludes the question being asked; the question travels in its
	// own field.
	history := append([]diagnose.ChatTurn(nil), s.chat...)
	s.chat = append(s.chat, diagnose.ChatTurn{Role: diagnose.RoleUser, Content: question})
	s.chatBusy = true
	gen := s.generation
	s.mu.Unlock()

	answer, err := m.assistant.Ask(ctx, diagnose.AssistantRequest{
		Disease:       first.DiseaseName,
		PlantType:     plantType,
		InitialRemedy: first.Remedy,
		Question:      question,
		History:       history,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return "", s.snapshotLocked(), nil
	}
	if err != nil {
		answer = Apology
	}
	s.chat = append(s.chat, diagnose.ChatTurn{Role: diagnose.RoleAssistant, Content: answer})
	s.chatBusy = false
	return answer, s.snapshotLocked(), nil
}

// Reset returns the session to idle, clearing image, identity, diagnosis,
// chat, and error. Reset is the only way out of the error phase.
func (m *Manager) Reset(id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return s.snapshotLocked(), nil
}

// Export hands out the pieces needed to persist the session. Only valid in
// the diagnosed phase; saving never re-enters the state machine.
func (m *Manager) Export(id string) (diagnose.PlantIdentity, *diagnose.DiagnosisResult, string, error) {
	s, err := m.get(id)
	if err != nil {
		return diagnose.PlantIdentity{}, nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseDiagnosed || s.identity == nil {
		return diagnose.PlantIdentity{}, nil, "", ErrNoDiagnosis
	}
	var d *diagnose.DiagnosisResult
	if s.diagnosis != nil {
		cp := *s.diagnosis
		cp.DiseaseDiagnoses = append([]diagnose.DiagnosisRecord(nil), s.diagnosis.DiseaseDiagnoses...)
		d = &cp
	}
	return *s.identity, d, s.imageURI, nil
}
