package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"

	"laila/internal/config"
)

const charsetUTF8 = "UTF-8"

// SESAPI is the part of the SES client SendEmail uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClientFunc returns a client bound to region.
type SESClientFunc func(ctx context.Context, region string) (SESAPI, error)

// NewSESClientFunc builds region-specific clients from a shared AWS config.
func NewSESClientFunc(base aws.Config) SESClientFunc {
	return func(_ context.Context, region string) (SESAPI, error) {
		return ses.NewFromConfig(base, func(o *ses.Options) { o.Region = region }), nil
	}
}

type EmailRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	BodyText   string   `json:"body_text"`
	BodyHTML   string   `json:"body_html,omitempty"`
	Sender     string   `json:"sender,omitempty"`
	CC         []string `json:"cc,omitempty"`
	BCC        []string `json:"bcc,omitempty"`
	ReplyTo    []string `json:"reply_to,omitempty"`
	AWSRegion  string   `json:"aws_region,omitempty"`
}

type EmailResult struct {
	Success        bool   `json:"success"`
	MessageID      string `json:"message_id,omitempty"`
	RecipientsSent int    `json:"recipients_sent,omitempty"`
	Sender         string `json:"sender,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
}

// SendEmail sends mail through AWS SES. Send failures are reported in the
// result, never as an error.
type SendEmail struct {
	senderEmail string
	senderName  string
	region      string
	newClient   SESClientFunc
}

func NewSendEmail(cfg config.EmailConfig, region string, newClient SESClientFunc) *SendEmail {
	return &SendEmail{
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		region:      region,
		newClient:   newClient,
	}
}

func (s *SendEmail) Name() string { return "send_email" }
func (s *SendEmail) Description() string {
	return "Send an email through AWS SES to one or more recipients"
}

func (s *SendEmail) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipients": stringListProp("Recipient email addresses"),
			"subject":    stringProp("Subject line"),
			"body_text":  stringProp("Plain text body"),
			"body_html":  stringProp("Optional HTML body"),
			"sender":     stringProp("Sender address; defaults to the configured sender"),
			"cc":         stringListProp("CC addresses"),
			"bcc":        stringListProp("BCC addresses"),
			"reply_to":   stringListProp("Reply-To addresses"),
			"aws_region": stringProp("AWS region for SES; defaults to the configured region"),
		},
		"required": []string{"recipients", "subject", "body_text"},
	}
}

func (s *SendEmail) Execute(ctx context.Context, input string) (string, error) {
	var req EmailRequest
	if err := decode(s.Name(), input, &req); err != nil {
		return "", err
	}
	return encode(s.Send(ctx, req))
}

func (s *SendEmail) Send(ctx context.Context, req EmailRequest) EmailResult {
	sender := req.Sender
	if sender == "" {
		sender = s.senderEmail
	}
	if sender == "" {
		return EmailResult{Error: "Sender email not configured. Set SES_SENDER_EMAIL environment variable."}
	}
	// The display name belongs to the configured sender only.
	if s.senderName != "" && req.Sender == "" {
		sender = fmt.Sprintf("%s <%s>", s.senderName, sender)
	}

	if len(req.Recipients) == 0 {
		return EmailResult{Error: "No recipients provided"}
	}

	region := req.AWSRegion
	if region == "" {
		region = s.region
	}
	if region == "" {
		region = config.DefaultRegion
	}

	client, err := s.newClient(ctx, region)
	if err != nil {
		slog.Error("ses client", "region", region, "error", err)
		return EmailResult{Error: "Unexpected error: " + err.Error()}
	}

	out, err := client.SendEmail(ctx, buildSendEmailInput(sender, req))
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			slog.Error("ses send failed", "code", apiErr.ErrorCode(), "message", apiErr.ErrorMessage())
			return EmailResult{
				Error:     fmt.Sprintf("AWS SES Error: %s - %s", apiErr.ErrorCode(), apiErr.ErrorMessage()),
				ErrorCode: apiErr.ErrorCode(),
			}
		}
		slog.Error("unexpected error sending email", "error", err)
		return EmailResult{Error: "Unexpected error: " + err.Error()}
	}

	messageID := aws.ToString(out.MessageId)
	slog.Info("email sent", "message_id", messageID, "region", region)
	return EmailResult{
		Success:        true,
		MessageID:      messageID,
		RecipientsSent: len(req.Recipients) + len(req.CC) + len(req.BCC),
		Sender:         sender,
		Subject:        req.Subject,
	}
}

func buildSendEmailInput(sender string, req EmailRequest) *ses.SendEmailInput {
	dest := &types.Destination{ToAddresses: req.Recipients}
	if len(req.CC) > 0 {
		dest.CcAddresses = req.CC
	}
	if len(req.BCC) > 0 {
		dest.BccAddresses = req.BCC
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(req.BodyText), Charset: aws.String(charsetUTF8)},
	}
	if req.BodyHTML != "" {
		body.Html = &types.Content{Data: aws.String(req.BodyHTML), Charset: aws.String(charsetUTF8)}
	}

	in := &ses.SendEmailInput{
		Source:      aws.String(sender),
		Destination: dest,
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String(charsetUTF8)},
			Body:    body,
		},
	}
	if len(req.ReplyTo) > 0 {
		in.ReplyToAddresses = req.ReplyTo
	}
	return in
}
