package command

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sms/core"
)

func TestProcessWebhookMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ProcessWebhookMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.SMSErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.SMSErrorBadInput, rich.TextCode)
	}
}

func TestProcessWebhookCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *ProcessWebhookCommand
	err := cmd.Execute(context.Background(), ProcessWebhookMessage{Provider: "plivo"})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.SMSErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.SMSErrorInternal, rich.TextCode)
	}
}
