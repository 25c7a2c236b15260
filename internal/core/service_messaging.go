package core

import (
	"context"

	"wellbeingcore/pkg/domain"
)

// SendMessage delivers a directed message. A nil toStudentID addresses the
// whole target role; a non-nil one scopes the message to that student.
func (s *Service) SendMessage(ctx context.Context, fromRole domain.Role, fromName string, toRole domain.Role, toStudentID *string, subject, body string) (domain.Message, error) {
	var msg domain.Message
	_, err := s.run(ctx, "send_message", func(tx domain.Transaction) error {
		m, err := tx.CreateMessage(domain.Message{
			FromRole:    fromRole,
			FromName:    fromName,
			ToRole:      toRole,
			ToStudentID: toStudentID,
			Subject:     subject,
			Body:        body,
		})
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	return msg, err
}

// EditMessage replaces a message body, appending the new body to the history
// audit trail and stamping EditedAt.
func (s *Service) EditMessage(ctx context.Context, messageID, body string) (domain.Message, error) {
	var msg domain.Message
	_, err := s.run(ctx, "edit_message", func(tx domain.Transaction) error {
		now := tx.Now()
		m, err := tx.UpdateMessage(messageID, func(m *domain.Message) error {
			m.Body = body
			m.EditedAt = &now
			m.History = append(m.History, domain.Revision{Body: body, Timestamp: now})
			return nil
		})
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	return msg, err
}

// MarkMessageRead stamps the first-read timestamp. Re-reading keeps the
// original stamp.
func (s *Service) MarkMessageRead(ctx context.Context, messageID string) (domain.Message, error) {
	var msg domain.Message
	_, err := s.run(ctx, "mark_message_read", func(tx domain.Transaction) error {
		m, err := tx.MarkMessageRead(messageID)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	return msg, err
}

// SendBroadcast publishes a school-wide announcement and fans out one inbox
// message to the student role in the same transaction, so the announcement and
// its delivery commit or abort together.
func (s *Service) SendBroadcast(ctx context.Context, title, body string) (domain.Broadcast, error) {
	var broadcast domain.Broadcast
	_, err := s.run(ctx, "send_broadcast", func(tx domain.Transaction) error {
		b, err := tx.CreateBroadcast(domain.Broadcast{Title: title, Body: body})
		if err != nil {
			return err
		}
		if _, err := tx.CreateMessage(domain.Message{
			FromRole: domain.RolePrincipal,
			FromName: "Principal's Office",
			ToRole:   domain.RoleStudent,
			Subject:  title,
			Body:     body,
		}); err != nil {
			return err
		}
		broadcast = b
		return nil
	})
	return broadcast, err
}

// EditBroadcast replaces a broadcast body with an audit revision.
func (s *Service) EditBroadcast(ctx context.Context, broadcastID, body string) (domain.Broadcast, error) {
	var broadcast domain.Broadcast
	_, err := s.run(ctx, "edit_broadcast", func(tx domain.Transaction) error {
		now := tx.Now()
		b, err := tx.UpdateBroadcast(broadcastID, func(b *domain.Broadcast) error {
			b.Body = body
			b.EditedAt = &now
			b.History = append(b.History, domain.Revision{Body: body, Timestamp: now})
			return nil
		})
		if err != nil {
			return err
		}
		broadcast = b
		return nil
	})
	return broadcast, err
}
