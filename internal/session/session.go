package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/entityinstall/audio-gateway/internal/audio"
	"github.com/entityinstall/audio-gateway/internal/lease"
	"github.com/entityinstall/audio-gateway/internal/observability"
	"github.com/entityinstall/audio-gateway/internal/registry"
	"github.com/entityinstall/audio-gateway/internal/segment"
	"github.com/entityinstall/audio-gateway/internal/storage"
)

// Config holds the per-session pipeline tuning.
type Config struct {
	SilenceThreshold  float64
	SilenceDuration   time.Duration
	InactivityTimeout time.Duration
	SupervisionTick   time.Duration // cadence of the inactivity check
	SampleRate        int
}

// Conn is the frame transport a session reads and writes. Satisfied by
// *websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// State is the session lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateClosed // terminal
)

// Session owns one client connection: it routes inbound frames, drives the
// segment assembler, enforces the inactivity timeout, and ties session
// begin/end to the worker lease lifecycle. All state is confined to the
// goroutine running Run; nothing else touches it.
type Session struct {
	clientID      string
	connectionRef string
	conn          Conn
	cfg           Config
	store         storage.Store
	registry      registry.Registry
	leases        *lease.Manager
	logger        zerolog.Logger

	state        State
	asm          *segment.Assembler
	lastActivity time.Time
	lease        *lease.Lease
}

type frame struct {
	messageType int
	data        []byte
}

// New creates a session for one accepted connection.
func New(conn Conn, clientID, connectionRef string, cfg Config, store storage.Store, reg registry.Registry, leases *lease.Manager, logger zerolog.Logger) *Session {
	now := time.Now()
	det := audio.NewDetector(audio.DetectorConfig{
		SilenceThreshold:  cfg.SilenceThreshold,
		SilenceDuration:   cfg.SilenceDuration,
		InactivityTimeout: cfg.InactivityTimeout,
	}, now)
	return &Session{
		clientID:      clientID,
		connectionRef: connectionRef,
		conn:          conn,
		cfg:           cfg,
		store:         store,
		registry:      reg,
		leases:        leases,
		logger:        logger,
		state:         StateConnecting,
		asm:           segment.NewAssembler(clientID, cfg.SampleRate, cfg.SilenceThreshold, det, now, logger),
		lastActivity:  now,
	}
}

// Run drives the session until the transport closes or the peer goes
// inactive. A launcher failure during startup is returned and the session
// never becomes active; transport closure is the normal exit and returns nil.
func (s *Session) Run(ctx context.Context) error {
	l, err := s.leases.Begin(ctx, s.clientID)
	if err != nil {
		s.conn.Close()
		s.state = StateClosed
		return err
	}
	s.lease = l

	// Registration is best-effort: the session proceeds without it.
	if err := s.registry.PutRecord(ctx, registry.Record{
		ClientID:      s.clientID,
		ConnectionRef: s.connectionRef,
		LastActive:    time.Now(),
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Session registration failed")
		observability.CollaboratorError("registry")
	}

	s.state = StateActive
	s.lastActivity = time.Now()
	s.logger.Info().Msg("Session active")
	observability.SessionStarted()
	started := time.Now()
	defer func() {
		s.close()
		observability.SessionEnded(time.Since(started))
	}()

	frames := make(chan frame)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readPump(frames, readErr, done)

	tick := time.NewTicker(s.cfg.SupervisionTick)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return nil
		case f := <-frames:
			s.lastActivity = time.Now()
			s.handleFrame(ctx, f)
		case err := <-readErr:
			s.logger.Info().AnErr("cause", err).Msg("Connection closed")
			return nil
		case now := <-tick.C:
			if now.Sub(s.lastActivity) > s.cfg.InactivityTimeout {
				s.logger.Info().Msg("Closing inactive connection")
				s.conn.Close()
				return nil
			}
		}
	}
}

// readPump moves frames from the transport to the session loop. It exits on
// the first read error, which is also how closing the connection cancels it.
func (s *Session) readPump(frames chan<- frame, readErr chan<- error, done <-chan struct{}) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- frame{messageType: mt, data: data}:
		case <-done:
			return
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, f frame) {
	switch f.messageType {
	case websocket.BinaryMessage:
		observability.AudioBytes("in", len(f.data))
		s.ingest(ctx, f.data)
	case websocket.TextMessage:
		s.handleText(ctx, f.data)
	default:
		// ping/pong and close frames are handled by the transport
	}
}

func (s *Session) handleText(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn().Err(err).Msg("Dropping malformed text frame")
		return
	}

	switch msg.Type {
	case messageTypeAudio:
		pcm, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dropping undecodable audio payload")
			return
		}
		observability.AudioBytes("in", len(pcm))
		s.ingest(ctx, pcm)
	case messageTypeCommand:
		s.dispatchCommand(ctx, msg.Command)
	default:
		s.logger.Warn().Str("message_type", msg.Type).Msg("Dropping frame with unrecognized type")
	}
}

// ingest feeds one audio chunk through the assembler and persists any segment
// a silence boundary closed. Upload failures are logged; the session
// continues.
func (s *Session) ingest(ctx context.Context, chunk []byte) {
	seg := s.asm.Ingest(chunk, time.Now())
	if seg == nil {
		return
	}
	if name, err := s.saveSegment(ctx, seg); err == nil {
		s.sendStatus(statusFrame{Type: statusSaved, Filename: name})
	}
}

func (s *Session) dispatchCommand(ctx context.Context, cmd string) {
	switch {
	case cmd == cmdStartRecording:
		observability.CommandReceived(cmd)
		s.asm.Discard(time.Now())
		s.sendStatus(statusFrame{Type: statusAck, Command: cmdStartRecording})

	case cmd == cmdStopRecording:
		observability.CommandReceived(cmd)
		seg := s.asm.Finalize(time.Now())
		if seg == nil {
			s.sendStatus(statusFrame{Type: statusNoAudio, Command: cmdStopRecording})
			return
		}
		name, err := s.saveSegment(ctx, seg)
		if err != nil {
			s.sendStatus(statusFrame{Type: statusError, Command: cmdStopRecording, Message: "failed to save audio"})
			return
		}
		s.sendStatus(statusFrame{Type: statusSaved, Command: cmdStopRecording, Filename: name})

	case strings.HasPrefix(cmd, cmdPlayPrefix):
		observability.CommandReceived("play")
		s.play(ctx, strings.TrimPrefix(cmd, cmdPlayPrefix))

	default:
		s.logger.Warn().Str("command", cmd).Msg("Unrecognized command")
	}
}

// saveSegment encodes a segment as WAV and uploads it under its generated
// name with client identity and capture time as metadata.
func (s *Session) saveSegment(ctx context.Context, seg *segment.AudioSegment) (string, error) {
	wav, err := audio.EncodeWAV(seg.PCM, seg.SampleRate)
	if err != nil {
		s.logger.Error().Err(err).Msg("WAV encoding failed")
		return "", err
	}
	err = s.store.Put(ctx, seg.Name, wav, &storage.Metadata{
		ClientID:  seg.ClientID,
		Timestamp: seg.CapturedAt,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("filename", seg.Name).Msg("Segment upload failed")
		observability.CollaboratorError("storage")
		return "", err
	}
	observability.SegmentSaved(len(wav))
	s.logger.Info().Str("filename", seg.Name).Int("pcm_bytes", len(seg.PCM)).Msg("Segment saved")
	return seg.Name, nil
}

// play fetches a stored segment and streams it back, framed with explicit
// start and end markers around the raw payload.
func (s *Session) play(ctx context.Context, name string) {
	data, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendStatus(statusFrame{Type: statusError, Message: "audio not found: " + name})
			return
		}
		s.logger.Error().Err(err).Str("filename", name).Msg("Playback fetch failed")
		observability.CollaboratorError("storage")
		s.sendStatus(statusFrame{Type: statusError, Message: "playback failed"})
		return
	}

	s.sendStatus(statusFrame{Type: statusPlaybackStart, Filename: name})
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Warn().Err(err).Msg("Playback write failed")
		return
	}
	observability.AudioBytes("out", len(data))
	s.sendStatus(statusFrame{Type: statusPlaybackEnd, Filename: name})
}

func (s *Session) sendStatus(f statusFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Error().Err(err).Msg("Status frame marshal failed")
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn().Err(err).Msg("Status frame write failed")
	}
}

// close performs terminal teardown: deregister, then hand the lease to its
// delayed teardown. Runs once; the state is terminal.
func (s *Session) close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.registry.DeleteRecord(ctx, s.clientID); err != nil {
		s.logger.Warn().Err(err).Msg("Session deregistration failed")
		observability.CollaboratorError("registry")
	}

	if s.lease != nil {
		s.leases.Release(s.lease)
	}
	s.logger.Info().Msg("Session closed")
}
