package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/contracts"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var callTracer = otel.Tracer("call-service")

type ICallService interface {
	// Initiate creates the session, reserves the active-call index for both
	// parties and pushes the offer to the callee. Callers must be contacts
	// of the callee, the callee must be online and neither party may
	// already be in a call.
	Initiate(ctx context.Context, caller, callee string, callType domain.CallType, offerSDP string) (*domain.CallSession, error)
	// Respond handles the callee's ACCEPT / REJECT / BUSY on a RINGING call.
	Respond(ctx context.Context, user string, callID uuid.UUID, action, answerSDP string) error
	// ConfirmConnection moves CONNECTING -> CONNECTED; a call in any other
	// state is a no-op.
	ConfirmConnection(ctx context.Context, user string, callID uuid.UUID) error
	// End terminates any non-terminal call; an unknown call id only clears
	// the acting user's stale index entry.
	End(ctx context.Context, user string, callID uuid.UUID, reason string) error
	// RelayICECandidate forwards the candidate to the other party; an
	// unresolvable session is dropped with a log line, never an error.
	RelayICECandidate(ctx context.Context, user string, callID uuid.UUID, candidate string)
	// SweepStaleCalls force-fails unanswered sessions older than the ring
	// timeout with reason TIMEOUT. INITIATING is reaped alongside RINGING so
	// a session orphaned before the ring transition cannot stay active
	// forever.
	SweepStaleCalls(ctx context.Context) error
	ActiveCalls(ctx context.Context) ([]domain.CallSession, error)
}

var nonTerminalStates = []domain.CallState{
	domain.CallInitiating,
	domain.CallRinging,
	domain.CallConnecting,
	domain.CallConnected,
}

type CallService struct {
	repo        domain.CallRepository
	contacts    domain.ContactRepository
	presence    contracts.Presence
	relay       contracts.Relay
	active      *ActiveCallIndex
	ringTimeout time.Duration
	log         *slog.Logger
}

func NewCallService(
	log *slog.Logger,
	repo domain.CallRepository,
	contacts domain.ContactRepository,
	presence contracts.Presence,
	relay contracts.Relay,
	active *ActiveCallIndex,
	ringTimeout time.Duration,
) *CallService {
	return &CallService{
		log:         log,
		repo:        repo,
		contacts:    contacts,
		presence:    presence,
		relay:       relay,
		active:      active,
		ringTimeout: ringTimeout,
	}
}

func (s *CallService) Initiate(
	ctx context.Context,
	caller, callee string,
	callType domain.CallType,
	offerSDP string,
) (*domain.CallSession, error) {
	ctx, span := callTracer.Start(ctx, "CallService.Initiate", trace.WithAttributes(
		attribute.String("call.caller", caller),
		attribute.String("call.callee", callee),
		attribute.String("call.type", string(callType)),
	))
	defer span.End()
	isContact, err := s.contacts.IsContact(ctx, caller, callee)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !isContact {
		return nil, domain.ErrNotContact
	}
	if !s.presence.IsOnline(callee) {
		return nil, domain.ErrCalleeOffline
	}
	session := domain.NewCallSession(caller, callee, callType, offerSDP)
	// Reserve both parties before touching storage so a concurrent initiate
	// for either of them loses here, not after a session row exists.
	if err := s.active.Reserve(session.ID, caller, callee); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		s.active.Release(session.ID, caller, callee)
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session failed")
		s.log.ErrorContext(ctx, "calls - initiate - create session failed", "caller", caller, "callee", callee, "err", err)
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, session.ID, []domain.CallState{domain.CallInitiating}, domain.CallRinging, "", ""); err != nil {
		s.active.Release(session.ID, caller, callee)
		span.RecordError(err)
		return nil, err
	}
	session.State = domain.CallRinging
	_ = s.relay.Publish(ctx, callee, domain.CallOfferEvent{
		Type:     domain.TypeCallOffer,
		CallID:   session.ID.String(),
		CallerID: caller,
		CallType: callType,
		SDP:      offerSDP,
	})
	// The caller needs the id while the call is still RINGING to cancel it
	// or trickle candidates, not only once the callee responds.
	_ = s.relay.Publish(ctx, caller, domain.CallStatusEvent{
		Type:   domain.TypeCallStatus,
		CallID: session.ID.String(),
		State:  domain.CallRinging,
	})
	s.log.InfoContext(ctx, "calls - initiate - ringing", "call_id", session.ID, "caller", caller, "callee", callee)
	return session, nil
}

func (s *CallService) Respond(
	ctx context.Context,
	user string,
	callID uuid.UUID,
	action, answerSDP string,
) error {
	ctx, span := callTracer.Start(ctx, "CallService.Respond", trace.WithAttributes(
		attribute.String("call.id", callID.String()),
		attribute.String("call.action", action),
	))
	defer span.End()
	session, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !session.HasParty(user) {
		return domain.ErrNotCallParticipant
	}
	if user != session.CalleeID {
		// Only the callee answers; the caller's way out is End.
		return domain.ErrInvalidCallState
	}
	switch action {
	case domain.RespondAccept:
		if err := s.repo.UpdateState(ctx, callID, []domain.CallState{domain.CallRinging}, domain.CallConnecting, answerSDP, ""); err != nil {
			span.RecordError(err)
			return err
		}
		_ = s.relay.Publish(ctx, session.CallerID, domain.CallAnswerEvent{
			Type:     domain.TypeCallAnswer,
			CallID:   callID.String(),
			CalleeID: session.CalleeID,
			SDP:      answerSDP,
		})
		s.log.InfoContext(ctx, "calls - respond - accepted", "call_id", callID)
		return nil
	case domain.RespondReject, domain.RespondBusy:
		reason := domain.ReasonRejected
		if action == domain.RespondBusy {
			reason = domain.ReasonBusy
		}
		if err := s.repo.UpdateState(ctx, callID, []domain.CallState{domain.CallRinging}, domain.CallEnded, "", reason); err != nil {
			span.RecordError(err)
			return err
		}
		s.active.Release(callID, session.CallerID, session.CalleeID)
		_ = s.relay.Publish(ctx, session.CallerID, domain.CallEndEvent{
			Type:    domain.TypeCallEnd,
			CallID:  callID.String(),
			State:   domain.CallEnded,
			Reason:  reason,
			EndedBy: user,
		})
		s.log.InfoContext(ctx, "calls - respond - declined", "call_id", callID, "reason", reason)
		return nil
	default:
		return domain.ErrInvalidCallState
	}
}

func (s *CallService) ConfirmConnection(ctx context.Context, user string, callID uuid.UUID) error {
	session, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	if !session.HasParty(user) {
		return domain.ErrNotCallParticipant
	}
	err = s.repo.UpdateState(ctx, callID, []domain.CallState{domain.CallConnecting}, domain.CallConnected, "", "")
	if errors.Is(err, domain.ErrInvalidCallState) {
		// Already CONNECTED (the other party confirmed first) or not yet
		// CONNECTING; both are harmless.
		s.log.InfoContext(ctx, "calls - confirm - no-op", "call_id", callID, "state", session.State)
		return nil
	}
	if err != nil {
		return err
	}
	status := domain.CallStatusEvent{
		Type:   domain.TypeCallStatus,
		CallID: callID.String(),
		State:  domain.CallConnected,
	}
	_ = s.relay.Publish(ctx, session.CallerID, status)
	_ = s.relay.Publish(ctx, session.CalleeID, status)
	s.log.InfoContext(ctx, "calls - confirm - connected", "call_id", callID)
	return nil
}

func (s *CallService) End(ctx context.Context, user string, callID uuid.UUID, reason string) error {
	ctx, span := callTracer.Start(ctx, "CallService.End", trace.WithAttributes(
		attribute.String("call.id", callID.String()),
		attribute.String("call.reason", reason),
	))
	defer span.End()
	session, err := s.repo.GetByID(ctx, callID)
	if errors.Is(err, domain.ErrCallNotFound) {
		// Already cleaned up; only drop whatever stale entry the acting
		// user still holds.
		s.active.ReleaseUser(user)
		s.log.InfoContext(ctx, "calls - end - unknown call, cleared stale index entry", "call_id", callID, "user", user)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !session.HasParty(user) {
		return domain.ErrNotCallParticipant
	}
	if reason == "" {
		reason = domain.ReasonHangup
	}
	err = s.repo.UpdateState(ctx, callID, nonTerminalStates, domain.CallEnded, "", reason)
	if errors.Is(err, domain.ErrInvalidCallState) {
		// Lost the race against the other party's End or the sweep; the
		// index may still hold entries if that path crashed mid-way.
		s.active.Release(callID, session.CallerID, session.CalleeID)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.active.Release(callID, session.CallerID, session.CalleeID)
	end := domain.CallEndEvent{
		Type:    domain.TypeCallEnd,
		CallID:  callID.String(),
		State:   domain.CallEnded,
		Reason:  reason,
		EndedBy: user,
	}
	_ = s.relay.Publish(ctx, session.CallerID, end)
	_ = s.relay.Publish(ctx, session.CalleeID, end)
	s.log.InfoContext(ctx, "calls - end - ended", "call_id", callID, "reason", reason, "ended_by", user)
	return nil
}

func (s *CallService) RelayICECandidate(ctx context.Context, user string, callID uuid.UUID, candidate string) {
	activeID, ok := s.active.Get(user)
	if !ok || activeID != callID {
		// Candidates arriving after the call ended are expected and harmless.
		s.log.Debug("calls - ice - dropped candidate for inactive call", "call_id", callID, "user", user)
		return
	}
	session, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		s.log.Debug("calls - ice - dropped candidate, session not found", "call_id", callID, "user", user)
		return
	}
	other := session.OtherParty(user)
	if other == "" {
		s.log.Debug("calls - ice - dropped candidate from non-participant", "call_id", callID, "user", user)
		return
	}
	_ = s.relay.Publish(ctx, other, domain.IceCandidateEvent{
		Type:      domain.TypeIceCandidate,
		CallID:    callID.String(),
		SenderID:  user,
		Candidate: candidate,
	})
}

// SweepStaleCalls is the consistency backstop for calls that never got a
// terminal response, including sessions stranded in INITIATING when the
// ring transition failed or the process died between the two writes.
// Re-running it is idempotent: it only ever moves stale sessions forward.
func (s *CallService) SweepStaleCalls(ctx context.Context) error {
	ctx, span := callTracer.Start(ctx, "CallService.SweepStaleCalls")
	defer span.End()
	cutoff := time.Now().Add(-s.ringTimeout)
	stale, err := s.repo.ListStaleUnanswered(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list stale unanswered failed")
		return err
	}
	span.SetAttributes(attribute.Int("call.stale_count", len(stale)))
	unanswered := []domain.CallState{domain.CallInitiating, domain.CallRinging}
	for _, session := range stale {
		if err := s.repo.UpdateState(ctx, session.ID, unanswered, domain.CallFailed, "", domain.ReasonTimeout); err != nil {
			if !errors.Is(err, domain.ErrInvalidCallState) {
				s.log.ErrorContext(ctx, "calls - sweep - transition failed", "call_id", session.ID, "err", err)
			}
			// Someone else terminated it first; still make sure the index
			// holds nothing for this call.
			s.active.Release(session.ID, session.CallerID, session.CalleeID)
			continue
		}
		s.active.Release(session.ID, session.CallerID, session.CalleeID)
		end := domain.CallEndEvent{
			Type:   domain.TypeCallEnd,
			CallID: session.ID.String(),
			State:  domain.CallFailed,
			Reason: domain.ReasonTimeout,
		}
		_ = s.relay.Publish(ctx, session.CallerID, end)
		_ = s.relay.Publish(ctx, session.CalleeID, end)
		s.log.InfoContext(ctx, "calls - sweep - timed out unanswered call", "call_id", session.ID)
	}
	return nil
}

func (s *CallService) ActiveCalls(ctx context.Context) ([]domain.CallSession, error) {
	return s.repo.ListActive(ctx)
}
