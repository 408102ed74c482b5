// -----------------------------------------------------------------------
// Notification Dispatcher - renders notification intents into HTML email
// and delivers them per recipient through the mailer service
// -----------------------------------------------------------------------

package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// Dispatcher renders notification intents and delivers them by email.
// In test mode delivery is logged instead of sent, matching the
// TEST_MODE toggle the notification flow is exercised with.
type Dispatcher struct {
	mailConfig *common.MailConfig
	mailer     *Service
	logger     arbor.ILogger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(mailConfig *common.MailConfig, mailer *Service, logger arbor.ILogger) interfaces.DispatcherService {
	return &Dispatcher{
		mailConfig: mailConfig,
		mailer:     mailer,
		logger:     logger,
	}
}

// IsConfigured reports whether the dispatcher can deliver mail. Test
// mode is always deliverable.
func (d *Dispatcher) IsConfigured() bool {
	if d.mailConfig.TestMode {
		return true
	}
	return d.mailer.IsConfigured(context.Background())
}

// Dispatch renders the intent and sends it to every recipient. Delivery
// failures are collected per recipient; a partial failure still
// attempts the remaining recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, intent *models.NotificationIntent) error {
	if intent == nil {
		return nil
	}
	if len(intent.Recipients) == 0 {
		d.logger.Warn().
			Str("intent_id", intent.ID).
			Str("component", intent.Component).
			Msg("Notification intent has no recipients, skipping")
		return nil
	}

	subject := renderSubject(intent)
	htmlBody := renderHTML(intent)
	textBody := renderText(intent)

	if d.mailConfig.TestMode {
		d.logger.Info().
			Str("intent_id", intent.ID).
			Str("kind", string(intent.Kind)).
			Str("subject", subject).
			Strs("recipients", intent.Recipients).
			Msg("TEST_MODE: email would be sent")
		return nil
	}

	var errs []error
	for _, recipient := range intent.Recipients {
		if err := d.mailer.SendHTMLEmail(ctx, recipient, subject, htmlBody, textBody); err != nil {
			d.logger.Error().
				Err(err).
				Str("intent_id", intent.ID).
				Str("recipient", recipient).
				Msg("Failed to send notification email")
			errs = append(errs, fmt.Errorf("send to %s: %w", recipient, err))
			continue
		}

		d.logger.Info().
			Str("intent_id", intent.ID).
			Str("kind", string(intent.Kind)).
			Str("recipient", recipient).
			Str("subject", subject).
			Msg("Notification email sent")
	}

	return errors.Join(errs...)
}

// renderSubject builds the subject line for an intent
func renderSubject(intent *models.NotificationIntent) string {
	switch intent.Kind {
	case models.IntentFutureAlert:
		return fmt.Sprintf("🔮 Future Update Alert: %s %s Planned", intent.Library, intent.Version)
	case models.IntentConfidenceAlert:
		emoji := "🔺"
		if intent.Confidence-intent.PreviousConfidence >= 20 {
			emoji = "📈"
		}
		return fmt.Sprintf("%s Confidence Update: %s %s (%d%% → %d%%)",
			emoji, intent.Library, intent.Version, intent.PreviousConfidence, intent.Confidence)
	default:
		return fmt.Sprintf("%s %s Released", intent.Library, intent.Version)
	}
}

const cellStyle = `padding:8px;border:1px solid #dfe3e7;`

// renderHTML builds the HTML body for an intent
func renderHTML(intent *models.NotificationIntent) string {
	if intent.Kind == models.IntentConfidenceAlert {
		return renderConfidenceHTML(intent)
	}

	library := html.EscapeString(intent.Library)
	version := html.EscapeString(intent.Version)
	activity := "recent"
	date := intent.ReleaseDate
	if intent.Kind == models.IntentFutureAlert {
		activity = "upcoming planned"
		date = intent.ExpectedDate
	}
	if date == "" {
		date = "Unknown"
	}

	impacted := library
	if intent.ComponentKind != "" {
		impacted = fmt.Sprintf("%s (%s)", library, html.EscapeString(string(intent.ComponentKind)))
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family:Inter,system-ui,-apple-system,sans-serif;font-size:14px;color:#111;line-height:1.5">`)
	b.WriteString(`<p style="margin:0 0 16px;">Hello Team,</p>`)
	fmt.Fprintf(&b, `<p style="margin:0 0 16px;">LibTrack detected %s update activity impacting <strong>%s</strong>. Please review the details below and plan follow-up actions as needed.</p>`,
		activity, impacted)

	b.WriteString(`<table style="width:100%;border-collapse:collapse;font-size:13px;margin:0 0 16px;">`)
	b.WriteString(`<thead><tr style="background:#f0f4f8;text-align:left;">`)
	for _, header := range []string{"Library", "Version", "Category", "Date"} {
		fmt.Fprintf(&b, `<th style="%s">%s</th>`, cellStyle, header)
	}
	if intent.Kind == models.IntentFutureAlert {
		fmt.Fprintf(&b, `<th style="%s">Confidence</th>`, cellStyle)
	}
	b.WriteString(`</tr></thead><tbody><tr>`)
	fmt.Fprintf(&b, `<td style="%s">%s</td>`, cellStyle, library)
	fmt.Fprintf(&b, `<td style="%s">%s</td>`, cellStyle, version)
	fmt.Fprintf(&b, `<td style="%s">%s</td>`, cellStyle, categoryLabel(intent))
	fmt.Fprintf(&b, `<td style="%s">%s</td>`, cellStyle, html.EscapeString(date))
	if intent.Kind == models.IntentFutureAlert {
		fmt.Fprintf(&b, `<td style="%s"><strong>%d%%</strong></td>`, cellStyle, intent.Confidence)
	}
	b.WriteString(`</tr></tbody></table>`)

	b.WriteString(`<p style="margin:0 0 12px;"><strong>Release Summary</strong></p>`)
	summary := intent.Summary
	if summary == "" {
		summary = "No summary provided."
	}
	fmt.Fprintf(&b, `<div style="margin:0 0 16px;"><p style="margin:0 0 6px;"><strong>%s %s</strong></p><p style="margin:0 0 6px;">%s</p>`,
		library, version, html.EscapeString(summary))
	if intent.SourceURL != "" {
		fmt.Fprintf(&b, `<a href='%s' target='_blank' rel='noopener'>Read release notes</a>`, html.EscapeString(intent.SourceURL))
	} else {
		b.WriteString(`<span style='color:#999'>Source link not provided.</span>`)
	}
	b.WriteString(`</div>`)

	if len(intent.Features) > 0 {
		b.WriteString(`<p style="margin:0 0 6px;"><strong>Key Features</strong></p><ul style="margin:0 0 16px;">`)
		for _, feature := range intent.Features {
			fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(feature))
		}
		b.WriteString(`</ul>`)
	}

	if intent.Kind == models.IntentFutureAlert {
		fmt.Fprintf(&b, `<div style="margin:16px 0;padding:16px;border:2px solid #f0ad4e;background:#fff8e5;border-radius:4px;"><strong style="color:#856404;">Future Update Notice (confidence: %d%%)</strong><br/><p style="margin:8px 0 0 0;color:#856404;">This is a <strong>planned/upcoming</strong> release that has <strong>NOT been officially released yet</strong>. We detected this based on official announcements or roadmaps. You'll receive another notification when this version is officially released.</p></div>`,
			intent.Confidence)
	}

	b.WriteString(`<p style="margin:16px 0;">Kindly schedule upgrades or mitigations as appropriate. This is an automated notification. Do not reply to this message.</p>`)
	b.WriteString(`<p style="margin:0;">Best regards,<br/><strong>LibTrack</strong></p>`)
	b.WriteString(`<hr style="margin:24px 0;border:none;border-top:1px solid #e5e7eb;"/>`)
	b.WriteString(`<p style="color:#666;font-size:12px;margin:0;">Automated notification powered by LibTrack.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// renderConfidenceHTML builds the HTML body for a confidence re-alert
func renderConfidenceHTML(intent *models.NotificationIntent) string {
	library := html.EscapeString(intent.Library)
	version := html.EscapeString(intent.Version)

	var b strings.Builder
	b.WriteString(`<div style="font-family:Inter,system-ui,-apple-system,sans-serif;font-size:14px;color:#111;line-height:1.5">`)
	b.WriteString(`<p style="margin:0 0 16px;">Hello Team,</p>`)
	b.WriteString(`<p style="margin:0 0 16px;">LibTrack has detected increased confidence for a previously announced future update.</p>`)

	b.WriteString(`<div style="background:#f8fafc;border-left:4px solid #3b82f6;padding:16px;margin:0 0 24px;border-radius:4px;">`)
	fmt.Fprintf(&b, `<h3 style="margin:0 0 12px;font-size:18px;color:#1e40af;">%s %s</h3>`, library, version)
	fmt.Fprintf(&b, `<p style="margin:0 0 8px;"><strong style="color:#64748b;">Confidence Change:</strong> <span style="background:#ef4444;color:white;padding:4px 12px;border-radius:4px;font-weight:600;">%d%%</span> <span style="margin:0 8px;color:#64748b;">→</span> <span style="background:#22c55e;color:white;padding:4px 12px;border-radius:4px;font-weight:600;">%d%%</span> <span style="margin-left:8px;color:#22c55e;font-weight:600;">+%d%%</span></p>`,
		intent.PreviousConfidence, intent.Confidence, intent.Confidence-intent.PreviousConfidence)
	if intent.ChangeReason != "" {
		fmt.Fprintf(&b, `<p style="margin:0 0 8px;"><strong style="color:#64748b;">Reason for Update:</strong> %s</p>`, html.EscapeString(intent.ChangeReason))
	}
	if intent.ExpectedDate != "" {
		fmt.Fprintf(&b, `<p style="margin:0;"><strong style="color:#64748b;">Expected Release:</strong> %s</p>`, html.EscapeString(intent.ExpectedDate))
	}
	b.WriteString(`</div>`)

	if intent.Summary != "" {
		fmt.Fprintf(&b, `<p style="margin:0 0 12px;"><strong>Planned Features:</strong></p><p style="margin:0 0 16px;color:#475569;">%s</p>`, html.EscapeString(intent.Summary))
	}
	if intent.SourceURL != "" {
		fmt.Fprintf(&b, `<a href='%s' target='_blank' rel='noopener' style="display:inline-block;background:#3b82f6;color:white;padding:10px 20px;text-decoration:none;border-radius:6px;font-weight:600;margin:0 0 24px;">View Official Announcement</a>`,
			html.EscapeString(intent.SourceURL))
	}

	b.WriteString(`<p style="margin:16px 0;color:#64748b;font-size:13px;">💡 <em>Higher confidence means more reliable sources have confirmed this update. We'll continue monitoring and notify you when it's officially released.</em></p>`)
	b.WriteString(`<p style="margin:0;">Best regards,<br/><strong>LibTrack</strong></p>`)
	b.WriteString(`<hr style="margin:24px 0;border:none;border-top:1px solid #e5e7eb;"/>`)
	b.WriteString(`<p style="color:#666;font-size:12px;margin:0;">Automated notification powered by LibTrack.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// renderText builds the plain text alternative body for an intent
func renderText(intent *models.NotificationIntent) string {
	var b strings.Builder
	switch intent.Kind {
	case models.IntentFutureAlert:
		fmt.Fprintf(&b, "Future update detected: %s %s (%s, confidence %d%%)\n",
			intent.Library, intent.Version, intent.Category, intent.Confidence)
		if intent.ExpectedDate != "" {
			fmt.Fprintf(&b, "Expected release: %s\n", intent.ExpectedDate)
		}
		b.WriteString("This version has not been officially released yet.\n")
	case models.IntentConfidenceAlert:
		fmt.Fprintf(&b, "Confidence update: %s %s (%d%% -> %d%%)\n",
			intent.Library, intent.Version, intent.PreviousConfidence, intent.Confidence)
		if intent.ChangeReason != "" {
			fmt.Fprintf(&b, "Reason: %s\n", intent.ChangeReason)
		}
	default:
		fmt.Fprintf(&b, "%s %s has been released (%s)\n", intent.Library, intent.Version, intent.Category)
		if intent.ReleaseDate != "" {
			fmt.Fprintf(&b, "Release date: %s\n", intent.ReleaseDate)
		}
	}
	if intent.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", intent.Summary)
	}
	if intent.SourceURL != "" {
		fmt.Fprintf(&b, "\nSource: %s\n", intent.SourceURL)
	}
	return b.String()
}

// categoryLabel renders the table category cell
func categoryLabel(intent *models.NotificationIntent) string {
	if intent.Kind == models.IntentFutureAlert {
		return "Future"
	}
	if intent.Category == "" {
		return "Update"
	}
	label := string(intent.Category)
	return strings.ToUpper(label[:1]) + label[1:]
}
