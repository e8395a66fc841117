package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"needboard/internal/domain"
)

// Notifier 通知提问者；失败只记日志，不影响主流程
type Notifier interface {
	NeedUnlocked(ctx context.Context, asker *domain.User, need *domain.Need) error
}

type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGrid(apiKey, fromEmail, fromName string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (s *SendGrid) NeedUnlocked(_ context.Context, asker *domain.User, need *domain.Need) error {
	to := mail.NewEmail(asker.Name, asker.Email)
	subject := fmt.Sprintf("Someone is interested in %q", need.Title)
	plain, rich := unlockedBody(asker, need)
	resp, err := s.client.Send(mail.NewSingleEmail(s.from, subject, to, plain, rich))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}

func unlockedBody(asker *domain.User, need *domain.Need) (string, string) {
	plain := fmt.Sprintf("Hi %s,\n\nA fulfiller unlocked your need %q and may contact you soon.\n"+
		"It has now been unlocked %d time(s).\n", asker.Name, need.Title, len(need.UnlockedBy))
	body := fmt.Sprintf("<p>Hi %s,</p><p>A fulfiller unlocked your need <strong>%s</strong> and may contact you soon.</p>"+
		"<p>It has now been unlocked %d time(s).</p>", html.EscapeString(asker.Name), html.EscapeString(need.Title), len(need.UnlockedBy))
	return plain, body
}

type Nop struct{}

func (Nop) NeedUnlocked(context.Context, *domain.User, *domain.Need) error { return nil }
