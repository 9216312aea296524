package usecase

import (
	"context"
	"errors"
	"fmt"

	"medvault/internal/core/domain"
	"medvault/internal/core/ports"
)

// SessionState is the explicit state machine behind the operator-facing
// pipeline. Transitions out of Failed happen only on an operator action
// (Acknowledge, Reset, or a fresh operation).
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateInProgress SessionState = "in_progress"
	StateFailed     SessionState = "failed"
	StateSucceeded  SessionState = "succeeded"
)

// Session is the process-scoped state object: the current patient profile
// and the in-memory document cache that mirrors the durable store. The store
// is the only source of truth; every cache mutation meant to survive a
// reload goes through the store before the operation is considered complete.
//
// Session serializes store access by contract: its operations must not be
// invoked concurrently.
type Session struct {
	store       ports.DocumentStore
	handles     ports.HandleCache
	ingestor    ports.DocumentIngestor
	synthesizer ports.ReportSynthesizer

	state   SessionState
	profile *domain.PatientProfile
	docs    []domain.Document
}

func NewSession(
	store ports.DocumentStore,
	handles ports.HandleCache,
	ingestor ports.DocumentIngestor,
	synthesizer ports.ReportSynthesizer,
) *Session {
	return &Session{
		store:       store,
		handles:     handles,
		ingestor:    ingestor,
		synthesizer: synthesizer,
		state:       StateIdle,
	}
}

func (s *Session) State() SessionState { return s.state }

// Documents returns the current cache view. Callers must not mutate the
// returned documents; removal goes through Remove.
func (s *Session) Documents() []domain.Document {
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *Session) Profile() *domain.PatientProfile {
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Init loads the persisted profile and documents and regenerates display
// handles. Handles from a prior lifetime are never reused: the cache is
// cleared before materializing fresh ones.
func (s *Session) Init(ctx context.Context) error {
	profile, err := s.store.LoadProfile(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrRepository, "load profile", err)
	}
	s.profile = profile

	if err := s.reload(ctx); err != nil {
		return err
	}
	s.state = StateIdle
	return nil
}

// SetProfile replaces the stored profile wholesale.
func (s *Session) SetProfile(ctx context.Context, profile domain.PatientProfile) error {
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return domain.WrapError(domain.ErrRepository, "save profile", err)
	}
	s.profile = &profile
	return nil
}

// Ingest classifies the given files and appends the resulting documents to
// the record. The store is updated before the cache; on a store failure the
// session reloads to re-establish a known state. A classification failure
// leaves the pre-ingestion state untouched. A display-handle failure fails
// the run after the cache already mirrors the store, so the persisted
// documents survive into the next operation.
func (s *Session) Ingest(ctx context.Context, files []domain.InputFile, progress ports.ProgressSink) error {
	if s.state == StateInProgress {
		return domain.ErrBusy
	}
	s.state = StateInProgress

	newDocs, err := s.ingestor.ClassifyFiles(ctx, files, progress)
	if err != nil {
		s.state = StateFailed
		return err
	}

	merged := make([]domain.Document, 0, len(s.docs)+len(newDocs))
	merged = append(merged, s.docs...)
	merged = append(merged, newDocs...)

	if err := s.store.PutAll(ctx, merged); err != nil {
		s.state = StateFailed
		// Prior store state is undefined after a failed PutAll; reload to
		// re-establish a known state.
		if reloadErr := s.reload(ctx); reloadErr != nil {
			return errors.Join(domain.WrapError(domain.ErrRepository, "persist documents", err), reloadErr)
		}
		return domain.WrapError(domain.ErrRepository, "persist documents", err)
	}

	// The store committed the merged set; the cache must reflect it before
	// anything else can fail, or the next ingest would merge from a stale
	// cache and silently drop the documents persisted here.
	offset := len(merged) - len(newDocs)
	s.docs = merged

	for i := range newDocs {
		path, err := s.handles.Materialize(newDocs[i].ID, newDocs[i].Payload, newDocs[i].MimeType)
		if err != nil {
			s.state = StateFailed
			return fmt.Errorf("materialize display handle: %w", err)
		}
		s.docs[offset+i].DisplayPath = path
	}

	s.state = StateSucceeded
	return nil
}

// Remove deletes one document. Store first, then the display handle, then
// the cache entry. An id absent from the store is a no-op there, and the
// cache is simply left unchanged when it does not hold the id either.
func (s *Session) Remove(ctx context.Context, id string) error {
	if s.state == StateInProgress {
		return domain.ErrBusy
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return domain.WrapError(domain.ErrRepository, "remove document", err)
	}
	s.handles.Release(id)
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			break
		}
	}
	return nil
}

// Reset clears the store, releases all display handles, and forgets the
// profile and cache.
func (s *Session) Reset(ctx context.Context) error {
	if s.state == StateInProgress {
		return domain.ErrBusy
	}
	if err := s.store.Clear(ctx); err != nil {
		return domain.WrapError(domain.ErrRepository, "clear store", err)
	}
	s.handles.ReleaseAll()
	s.docs = nil
	s.profile = nil
	s.state = StateIdle
	return nil
}

// Synthesize generates the narrative report from the current document set.
func (s *Session) Synthesize(ctx context.Context) (domain.Report, error) {
	if s.state == StateInProgress {
		return domain.Report{}, domain.ErrBusy
	}
	s.state = StateInProgress

	report, err := s.synthesizer.SynthesizeReport(ctx, s.docs)
	if err != nil {
		s.state = StateFailed
		return domain.Report{}, err
	}
	s.state = StateSucceeded
	return report, nil
}

// Acknowledge is the operator-triggered transition out of a terminal state.
func (s *Session) Acknowledge() {
	if s.state == StateFailed || s.state == StateSucceeded {
		s.state = StateIdle
	}
}

func (s *Session) reload(ctx context.Context) error {
	docs, err := s.store.LoadAll(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrRepository, "load documents", err)
	}

	s.handles.ReleaseAll()
	for i := range docs {
		path, err := s.handles.Materialize(docs[i].ID, docs[i].Payload, docs[i].MimeType)
		if err != nil {
			return fmt.Errorf("materialize display handle: %w", err)
		}
		docs[i].DisplayPath = path
	}
	s.docs = docs
	return nil
}
