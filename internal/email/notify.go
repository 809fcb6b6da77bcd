package email

import (
	"context"
	"fmt"

	"enroll/internal/user"
	pkgemail "enroll/pkg/email"
)

// Notifier builds and sends the template-triggered notifications the
// identity system needs after registration: password reset and email
// verification. Delivery follows the router's primary-with-fallback
// contract with a fixed sender identity.
type Notifier struct {
	router *Router
	links  *ActionLinks
}

func NewNotifier(router *Router, links *ActionLinks) *Notifier {
	return &Notifier{router: router, links: links}
}

// SendPasswordReset emails a reset link to an existing account.
func (n *Notifier) SendPasswordReset(ctx context.Context, u *user.User) error {
	link, err := n.links.Build(ActionResetCredentials, u.ID, u.Email)
	if err != nil {
		return err
	}
	minutes := int(n.links.TTL().Minutes())
	body := fmt.Sprintf(
		"Someone just requested a password reset for your account.<br/>"+
			"If this was you, click the link below to choose a new password:<br/>"+
			"<a href=%q>%s</a><br/>"+
			"The link expires in %d minutes.",
		link, link, minutes)

	return n.router.SendNotification(ctx, Message{
		To:       u.Email,
		ToName:   displayName(u),
		Subject:  "Reset your password",
		TextBody: fmt.Sprintf("Someone just requested a password reset for your account. Open %s within %d minutes to choose a new password.", link, minutes),
		HTMLBody: body,
	})
}

// SendVerifyEmail emails a verification link to a freshly created account.
func (n *Notifier) SendVerifyEmail(ctx context.Context, u *user.User) error {
	link, err := n.links.Build(ActionVerifyEmail, u.ID, u.Email)
	if err != nil {
		return err
	}
	minutes := int(n.links.TTL().Minutes())
	body := fmt.Sprintf(
		"Someone just created an account with your email address.<br/>"+
			"If this was you, click the link below to verify it:<br/>"+
			"<a href=%q>%s</a><br/>"+
			"The link expires in %d minutes.",
		link, link, minutes)

	return n.router.SendNotification(ctx, Message{
		To:       u.Email,
		ToName:   displayName(u),
		Subject:  "Verify your email address",
		TextBody: fmt.Sprintf("Someone just created an account with your email address. Open %s within %d minutes to verify it.", link, minutes),
		HTMLBody: body,
	})
}

func displayName(u *user.User) string {
	if u.FirstName != "" || u.LastName != "" {
		if u.FirstName == "" {
			return u.LastName
		}
		if u.LastName == "" {
			return u.FirstName
		}
		return u.FirstName + " " + u.LastName
	}
	first, last := pkgemail.DeriveNameFromEmail(u.Email)
	return first + " " + last
}
