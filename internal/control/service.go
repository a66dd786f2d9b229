package control

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"playerd/internal/audiopool"
	"playerd/internal/decoder"
	"playerd/internal/platform/metrics"
	"playerd/internal/playback"
)

// ErrInvalidSource is returned when a session is requested without a source.
var ErrInvalidSource = errors.New("source is required")

// Factory builds the decoder and audio device for a new session. A nil
// device gives a video-only session.
type Factory func(source string) (decoder.Decoder, audiopool.Device, error)

// Service creates, looks up and tears down playback sessions.
type Service struct {
	reg     Registry
	factory Factory
	opts    playback.Options
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewService returns a Service that registers sessions in reg and builds
// them with factory. opts is the template for every session; its ID, Device,
// Logger and Metrics are filled in per session.
func NewService(reg Registry, factory Factory, opts playback.Options, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{reg: reg, factory: factory, opts: opts, log: log, metrics: m}
}

// Create opens source in a new session. The open itself completes in the
// background; the session reports it through its state.
func (s *Service) Create(source string) (*Session, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrInvalidSource
	}

	dec, dev, err := s.factory(source)
	if err != nil {
		return nil, fmt.Errorf("create session for %q: %w", source, err)
	}

	id := SessionID(uuid.NewString())
	opts := s.opts
	opts.ID = string(id)
	opts.Device = dev
	opts.Logger = s.log
	opts.Metrics = s.metrics

	sess := &Session{
		ID:        id,
		Source:    source,
		Media:     playback.New(source, dec, opts),
		Decoder:   dec,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reg.Add(sess); err != nil {
		closeSession(sess)
		return nil, err
	}
	s.metrics.SetActiveSessions(s.reg.ActiveSessionCount())

	s.log.Info("session created", slog.String("session", string(id)), slog.String("source", source))
	return sess, nil
}

// Get returns the session with the given id.
func (s *Service) Get(id SessionID) (*Session, error) {
	sess, ok := s.reg.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete unregisters the session, stops playback and releases its device
// and decoder.
func (s *Service) Delete(id SessionID) error {
	sess, ok := s.reg.Remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.metrics.SetActiveSessions(s.reg.ActiveSessionCount())

	if err := closeSession(sess); err != nil {
		s.log.Warn("session closed with errors", slog.String("session", string(id)), slog.String("error", err.Error()))
		return err
	}
	s.log.Info("session deleted", slog.String("session", string(id)))
	return nil
}

// CloseAll deletes every session. Used at shutdown.
func (s *Service) CloseAll() error {
	var errs []error
	for _, id := range s.reg.IDs() {
		if err := s.Delete(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ActiveSessionCount returns the number of live sessions.
func (s *Service) ActiveSessionCount() int {
	return s.reg.ActiveSessionCount()
}

func closeSession(sess *Session) error {
	return errors.Join(sess.Media.Close(), sess.Decoder.Close())
}
