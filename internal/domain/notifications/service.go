package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store        StoreAPI
	Mailer       Mailer
	From         string
	EmailEnabled bool
}

func New(store StoreAPI, mailer Mailer, from string, emailEnabled bool) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, From: from, EmailEnabled: emailEnabled}
}

func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil || !s.EmailEnabled {
		return nil
	}
	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.From, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

// EvaluationMoved fans a workflow transition out to whoever acts next: the
// holders of the stage's role, plus the record's employee when the record
// came back to them or reached a terminal state.
func (s *Service) EvaluationMoved(ctx context.Context, recordType, recordID, employeeUserID, newStatus, actorRole, feedback string) {
	title := fmt.Sprintf("%s evaluation %s", strings.ToUpper(recordType[:1])+recordType[1:], statusLabel(newStatus))
	body := fmt.Sprintf("Record %s moved to %s by %s.", recordID, newStatus, actorRole)
	if strings.TrimSpace(feedback) != "" {
		body += " Feedback: " + feedback
	}

	recipients := map[string]bool{}
	if role := nextRoleForStatus(newStatus); role != "" {
		ids, err := s.store.UserIDsByRole(ctx, role)
		if err != nil {
			slog.Warn("notification recipient lookup failed", "role", role, "err", err)
		}
		for _, id := range ids {
			recipients[id] = true
		}
	}
	if newStatus == "draft" || newStatus == "completed" {
		recipients[employeeUserID] = true
	}

	for userID := range recipients {
		if userID == "" {
			continue
		}
		if err := s.Create(ctx, userID, "evaluation."+newStatus, title, body); err != nil {
			slog.Warn("notification create failed", "userId", userID, "err", err)
		}
	}
}

func nextRoleForStatus(status string) string {
	switch status {
	case "pending_checker":
		return "checker"
	case "pending_approver":
		return "approver"
	}
	return ""
}

func statusLabel(status string) string {
	switch status {
	case "pending_checker":
		return "awaiting checker review"
	case "pending_approver":
		return "awaiting approver decision"
	case "completed":
		return "completed"
	case "draft":
		return "returned for rework"
	}
	return status
}
