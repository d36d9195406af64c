package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/contracts"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var msgTracer = otel.Tracer("message-service")

// SendMessageDTO is the inbound send request.
type SendMessageDTO struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type IMessageService interface {
	// Send persists the message with a single point-in-time presence
	// decision, pushes it live or enqueues it, and echoes it to the sender.
	Send(ctx context.Context, sender string, dto SendMessageDTO) (*domain.Message, error)
	// DeliverPendingOnConnect drains the offline queue straight onto the
	// client handle and then redelivers persisted PENDING rows; both passes
	// are idempotent and safe under concurrent Send calls.
	DeliverPendingOnConnect(ctx context.Context, userID string, c contracts.Client) error
	// History returns a reverse-chronological page plus a hasMore flag.
	History(ctx context.Context, a, b string, page, size int) ([]domain.Message, bool, error)
	// MarkRead flips every unread message from other to me into READ and
	// notifies other. It never touches messages in the opposite direction.
	MarkRead(ctx context.Context, me, other string) (int64, error)
}

type MessageService struct {
	users     domain.UserRepository
	contacts  domain.ContactRepository
	repo      domain.MessageRepository
	presence  contracts.Presence
	relay     contracts.Relay
	queue     contracts.OfflineQueue
	cache     contracts.PreviewCache
	txManager contracts.Transactor
	log       *slog.Logger
}

func NewMessageService(
	log *slog.Logger,
	users domain.UserRepository,
	contacts domain.ContactRepository,
	repo domain.MessageRepository,
	presence contracts.Presence,
	relay contracts.Relay,
	queue contracts.OfflineQueue,
	cache contracts.PreviewCache,
	txManager contracts.Transactor,
) *MessageService {
	return &MessageService{
		log:       log,
		users:     users,
		contacts:  contacts,
		repo:      repo,
		presence:  presence,
		relay:     relay,
		queue:     queue,
		cache:     cache,
		txManager: txManager,
	}
}

func (s *MessageService) Send(ctx context.Context, sender string, dto SendMessageDTO) (*domain.Message, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.Send", trace.WithAttributes(
		attribute.String("msg.sender", sender),
		attribute.String("msg.receiver", dto.ReceiverID),
	))
	defer span.End()
	if _, err := s.users.GetUserByID(ctx, sender); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, dto.ReceiverID); err != nil {
		return nil, err
	}
	msg := domain.NewMessage(sender, dto.ReceiverID, dto.Content)
	// One point-in-time decision: the status assigned here and the
	// push-or-enqueue branch below must agree, so presence is read exactly
	// once and never re-checked after persisting.
	online := s.presence.IsOnline(dto.ReceiverID)
	if online {
		msg.Status = domain.StatusDelivered
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		// Sending implicitly authorizes future messaging both ways; first
		// contact is established by first message.
		if err := s.contacts.EnsureBidirectional(txCtx, sender, dto.ReceiverID); err != nil {
			return err
		}
		seq, err := s.repo.Save(txCtx, msg)
		if err != nil {
			return err
		}
		msg.Seq = seq
		return s.contacts.TouchLastActivity(txCtx, sender, dto.ReceiverID, msg.CreatedAt)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "messages - send - persist failed", "sender", sender, "receiver", dto.ReceiverID, "err", err)
		return nil, err
	}
	event := eventFromMessage(msg)
	if online {
		_ = s.relay.Publish(ctx, dto.ReceiverID, event)
	} else {
		raw, _ := json.Marshal(event)
		if err := s.queue.Enqueue(ctx, dto.ReceiverID, raw); err != nil {
			// The PENDING row is the source of truth; the connect-time
			// redelivery scan covers a failed enqueue.
			s.log.ErrorContext(ctx, "messages - send - enqueue failed", "receiver", dto.ReceiverID, "err", err)
		}
	}
	// Echo to the sender's own topic for multi-tab self-sync.
	_ = s.relay.Publish(ctx, sender, event)
	s.invalidatePreviews(ctx, sender, dto.ReceiverID)
	s.log.InfoContext(ctx, "messages - send - persisted", "message_id", msg.ID, "status", msg.Status, "seq", msg.Seq)
	return msg, nil
}

// DeliverPendingOnConnect pushes directly to the client handle rather than
// through the relay so it can run before the handle is registered for live
// pushes; that is what keeps drained messages ahead of anything sent after
// the connect event.
func (s *MessageService) DeliverPendingOnConnect(ctx context.Context, userID string, c contracts.Client) error {
	ctx, span := msgTracer.Start(ctx, "MessageService.DeliverPendingOnConnect", trace.WithAttributes(
		attribute.String("msg.user", userID),
	))
	defer span.End()
	drained, err := s.queue.Drain(ctx, userID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - deliver pending - drain failed", "user", userID, "err", err)
		return err
	}
	for _, raw := range drained {
		var event domain.MessageEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			s.log.ErrorContext(ctx, "messages - deliver pending - bad queued payload", "user", userID, "err", err)
			continue
		}
		event.Status = domain.StatusDelivered
		data, _ := json.Marshal(event)
		if err := c.Send(ctx, data); err != nil {
			s.log.ErrorContext(ctx, "messages - deliver pending - push failed", "user", userID, "err", err)
		}
		if err := s.repo.MarkDelivered(ctx, event.ID); err != nil {
			s.log.ErrorContext(ctx, "messages - deliver pending - status flip failed", "message_id", event.ID, "err", err)
		}
	}
	// Second pass: persisted rows still PENDING cover the case where the
	// push/enqueue step failed or was skipped. The status flip is a no-op
	// for anything the first pass already delivered.
	pending, err := s.repo.ListPendingForReceiver(ctx, userID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - deliver pending - pending scan failed", "user", userID, "err", err)
		return err
	}
	for i := range pending {
		msg := &pending[i]
		event := eventFromMessage(msg)
		event.Status = domain.StatusDelivered
		data, _ := json.Marshal(event)
		if err := c.Send(ctx, data); err != nil {
			s.log.ErrorContext(ctx, "messages - deliver pending - push failed", "user", userID, "err", err)
		}
		if err := s.repo.MarkDelivered(ctx, msg.ID); err != nil {
			s.log.ErrorContext(ctx, "messages - deliver pending - status flip failed", "message_id", msg.ID, "err", err)
		}
	}
	if len(drained) > 0 || len(pending) > 0 {
		span.SetAttributes(
			attribute.Int("msg.drained", len(drained)),
			attribute.Int("msg.redelivered", len(pending)),
		)
		s.log.InfoContext(ctx, "messages - deliver pending - flushed", "user", userID, "drained", len(drained), "redelivered", len(pending))
	}
	return nil
}

func (s *MessageService) History(ctx context.Context, a, b string, page, size int) ([]domain.Message, bool, error) {
	msgs, hasMore, err := s.repo.ListConversation(ctx, a, b, page, size)
	if err != nil {
		s.log.ErrorContext(ctx, "messages - history - list failed", "a", a, "b", b, "err", err)
		return nil, false, err
	}
	return msgs, hasMore, nil
}

func (s *MessageService) MarkRead(ctx context.Context, me, other string) (int64, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.MarkRead", trace.WithAttributes(
		attribute.String("msg.reader", me),
		attribute.String("msg.sender", other),
	))
	defer span.End()
	count, err := s.repo.MarkConversationRead(ctx, other, me)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - mark read - update failed", "reader", me, "sender", other, "err", err)
		return 0, err
	}
	if count > 0 {
		_ = s.relay.Publish(ctx, other, domain.ReadReceiptEvent{
			Type:     domain.TypeReadReceipt,
			ReaderID: me,
			ReadAt:   time.Now(),
		})
		s.invalidatePreviews(ctx, me, other)
	}
	s.log.InfoContext(ctx, "messages - mark read - done", "reader", me, "sender", other, "count", count)
	return count, nil
}

func (s *MessageService) invalidatePreviews(ctx context.Context, users ...string) {
	if err := s.cache.Invalidate(ctx, users...); err != nil {
		s.log.ErrorContext(ctx, "messages - cache invalidate failed", "err", err)
	}
}

func eventFromMessage(m *domain.Message) domain.MessageEvent {
	return domain.MessageEvent{
		Type:       domain.TypeMessage,
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Status:     m.Status,
		Seq:        m.Seq,
		CreatedAt:  m.CreatedAt,
	}
}
