package voice

import (
	"context"
	"fmt"

	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/pkg/claims"
	"github.com/voice-console/internal/recorder"
	"go.uber.org/zap"
)

// Enrollment samples live in the session until the wizard finishes, so they
// are capped to keep a session within a DynamoDB item. Sizes are base64
// lengths.
const (
	MaxSampleBytes     = 128 << 10
	MaxEnrollmentBytes = 320 << 10
)

var (
	ErrSampleTooLarge     = fmt.Errorf("%w: recording is too long, keep each phrase under a few seconds", domain.ErrBadRequest)
	ErrEnrollmentTooLarge = fmt.Errorf("%w: recordings are too long in total, re-record the longer phrases", domain.ErrBadRequest)

	ErrStepNotVerified  = fmt.Errorf("%w: record and verify this phrase before continuing", domain.ErrBadRequest)
	ErrEnrollIncomplete = fmt.Errorf("%w: every phrase must be verified before finishing", domain.ErrBadRequest)
	ErrNoPhrases        = fmt.Errorf("%w: no phrases configured", domain.ErrNotFound)
)

// API is the part of the voice API behind the recordings and enrollment pages.
type API interface {
	Phrases(ctx context.Context, token string) ([]domain.Phrase, error)
	Verify(ctx context.Context, token string, rec domain.Recording) (*domain.VerifyResult, error)
	Enroll(ctx context.Context, token string, recs []domain.Recording) error
	MyVoices(ctx context.Context, token string) ([]domain.Voice, error)
	AddVoice(ctx context.Context, token, audio string) (*domain.Voice, error)
	DeleteVoice(ctx context.Context, token string, voiceID int64) error
	VoiceUsers(ctx context.Context, token string) ([]domain.UserRef, error)
	UserVoices(ctx context.Context, token string, userID int64) ([]domain.Voice, error)
}

// Archive keeps a copy of uploaded recordings. Optional.
type Archive interface {
	PutRecording(ctx context.Context, owner string, voiceID int64, audio string) (string, error)
	DeleteRecording(ctx context.Context, voiceID int64) error
}

// Wizard is the enrollment progress as shown on the page.
type Wizard struct {
	Phrases []domain.Phrase
	Step    int
	Current domain.Phrase
	Sample  domain.EnrollmentStep
}

func (w *Wizard) First() bool { return w.Step == 0 }
func (w *Wizard) Last() bool { return w.Step == len(w.Phrases)-1 }

// CanAdvance is true once the current phrase has a matching sample.
func (w *Wizard) CanAdvance() bool { return w.Sample.Matched() }

type Service interface {
	Phrases(ctx context.Context, sess *domain.Session) ([]domain.Phrase, error)

	Enrollment(ctx context.Context, sess *domain.Session) (*Wizard, error)
	VerifyStep(ctx context.Context, sess *domain.Session, audio string) (*Wizard, error)
	NextStep(ctx context.Context, sess *domain.Session) (*Wizard, error)
	PrevStep(ctx context.Context, sess *domain.Session) (*Wizard, error)
	FinishEnrollment(ctx context.Context, sess *domain.Session) error

	MyVoices(ctx context.Context, sess *domain.Session) ([]domain.Voice, error)
	AddVoice(ctx context.Context, sess *domain.Session, audio string) (*domain.Voice, error)
	DeleteVoice(ctx context.Context, sess *domain.Session, voiceID int64) error

	// Users and UserVoices back the admin recordings page.
	Users(ctx context.Context, sess *domain.Session) ([]domain.UserRef, error)
	UserVoices(ctx context.Context, sess *domain.Session, userID int64) ([]domain.Voice, error)
}

type service struct {
	api      API
	sessions session.Service
	archive  Archive
	logger   *zap.Logger
}

// NewService wires the recordings flows. archive may be nil.
func NewService(api API, sessions session.Service, archive Archive, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{api: api, sessions: sessions, archive: archive, logger: logger}
}

func (s *service) Phrases(ctx context.Context, sess *domain.Session) ([]domain.Phrase, error) {
	return s.api.Phrases(ctx, sess.Token)
}

// Enrollment loads the wizard, starting over when the phrase set changed
// since the session began enrolling.
func (s *service) Enrollment(ctx context.Context, sess *domain.Session) (*Wizard, error) {
	phrases, err := s.api.Phrases(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, ErrNoPhrases
	}
	if !sameSteps(sess.Enrollment, phrases) {
		e := &domain.Enrollment{Samples: make([]domain.EnrollmentStep, len(phrases))}
		for i, p := range phrases {
			e.Samples[i].PhraseID = p.ID
		}
		sess.Enrollment = e
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
	}
	return wizard(sess.Enrollment, phrases), nil
}

func sameSteps(e *domain.Enrollment, phrases []domain.Phrase) bool {
	if e == nil || len(e.Samples) != len(phrases) || e.Step < 0 || e.Step >= len(phrases) {
		return false
	}
	for i, p := range phrases {
		if e.Samples[i].PhraseID != p.ID {
			return false
		}
	}
	return true
}

func wizard(e *domain.Enrollment, phrases []domain.Phrase) *Wizard {
	return &Wizard{
		Phrases: phrases,
		Step:    e.Step,
		Current: phrases[e.Step],
		Sample:  e.Samples[e.Step],
	}
}

// VerifyStep scores audio against the current phrase and keeps it as that
// phrase's sample, replacing any earlier take.
func (s *service) VerifyStep(ctx context.Context, sess *domain.Session, audio string) (*Wizard, error) {
	w, err := s.Enrollment(ctx, sess)
	if err != nil {
		return nil, err
	}
	audio, err = recorder.Normalize(audio)
	if err != nil {
		return w, err
	}
	if err := checkSampleSize(sess.Enrollment, w.Step, audio); err != nil {
		return w, err
	}
	rec := domain.Recording{PhraseID: w.Current.ID, Audio: audio}
	res, err := s.api.Verify(ctx, sess.Token, rec)
	if err != nil {
		return w, err
	}
	sess.Enrollment.Samples[w.Step] = domain.EnrollmentStep{PhraseID: rec.PhraseID, Audio: audio, Result: res}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return wizard(sess.Enrollment, w.Phrases), nil
}

// checkSampleSize applies the caps to audio as the sample for step, counting
// the other steps' samples towards the total.
func checkSampleSize(e *domain.Enrollment, step int, audio string) error {
	if len(audio) > MaxSampleBytes {
		return ErrSampleTooLarge
	}
	total := len(audio)
	for i, smp := range e.Samples {
		if i != step {
			total += len(smp.Audio)
		}
	}
	if total > MaxEnrollmentBytes {
		return ErrEnrollmentTooLarge
	}
	return nil
}

func (s *service) NextStep(ctx context.Context, sess *domain.Session) (*Wizard, error) {
	w, err := s.Enrollment(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !w.CanAdvance() {
		return w, ErrStepNotVerified
	}
	if w.Last() {
		return w, nil
	}
	sess.Enrollment.Step++
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return wizard(sess.Enrollment, w.Phrases), nil
}

func (s *service) PrevStep(ctx context.Context, sess *domain.Session) (*Wizard, error) {
	w, err := s.Enrollment(ctx, sess)
	if err != nil {
		return nil, err
	}
	if w.First() {
		return w, nil
	}
	sess.Enrollment.Step--
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return wizard(sess.Enrollment, w.Phrases), nil
}

// FinishEnrollment submits every verified sample and resets the wizard.
func (s *service) FinishEnrollment(ctx context.Context, sess *domain.Session) error {
	if _, err := s.Enrollment(ctx, sess); err != nil {
		return err
	}
	recs := make([]domain.Recording, 0, len(sess.Enrollment.Samples))
	for _, st := range sess.Enrollment.Samples {
		if !st.Matched() {
			return ErrEnrollIncomplete
		}
		recs = append(recs, domain.Recording{PhraseID: st.PhraseID, Audio: st.Audio})
	}
	if err := s.api.Enroll(ctx, sess.Token, recs); err != nil {
		return err
	}
	sess.Enrollment = nil
	return s.sessions.Save(ctx, sess)
}

func (s *service) MyVoices(ctx context.Context, sess *domain.Session) ([]domain.Voice, error) {
	return s.api.MyVoices(ctx, sess.Token)
}

// AddVoice uploads a recording for the signed-in user. A failed archive copy
// is logged and does not fail the upload.
func (s *service) AddVoice(ctx context.Context, sess *domain.Session, audio string) (*domain.Voice, error) {
	audio, err := recorder.Normalize(audio)
	if err != nil {
		return nil, err
	}
	v, err := s.api.AddVoice(ctx, sess.Token, audio)
	if err != nil {
		return nil, err
	}
	if s.archive != nil {
		owner := ownerOf(sess)
		if key, err := s.archive.PutRecording(ctx, owner, v.ID, audio); err != nil {
			s.logger.Warn("archive recording failed", zap.String("owner", owner), zap.Int64("voice_id", v.ID), zap.Error(err))
		} else {
			s.logger.Debug("recording archived", zap.String("key", key), zap.Int64("voice_id", v.ID))
		}
	}
	return v, nil
}

func ownerOf(sess *domain.Session) string {
	c, _ := claims.Decode(sess.Token)
	if sub := c.Subject(); sub != "" {
		return sub
	}
	if name := c.Username(); name != "" {
		return name
	}
	return "unknown"
}

// DeleteVoice removes a recording and its archived copy. A failed archive
// delete is logged and does not fail the call.
func (s *service) DeleteVoice(ctx context.Context, sess *domain.Session, voiceID int64) error {
	if voiceID <= 0 {
		return fmt.Errorf("%w: invalid voice id", domain.ErrBadRequest)
	}
	if err := s.api.DeleteVoice(ctx, sess.Token, voiceID); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.DeleteRecording(ctx, voiceID); err != nil {
			s.logger.Warn("delete archived recording failed", zap.Int64("voice_id", voiceID), zap.Error(err))
		}
	}
	return nil
}

func (s *service) Users(ctx context.Context, sess *domain.Session) ([]domain.UserRef, error) {
	return s.api.VoiceUsers(ctx, sess.Token)
}

func (s *service) UserVoices(ctx context.Context, sess *domain.Session, userID int64) ([]domain.Voice, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrBadRequest)
	}
	return s.api.UserVoices(ctx, sess.Token, userID)
}
