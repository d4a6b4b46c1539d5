package service

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestActivationTemplateRenders(t *testing.T) {
	body, err := render(activationTemplate, ActivationNotification{
		Email:       "vendor@example.com",
		Username:    "Vendor One",
		Role:        "VENDOR",
		ActivatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "Vendor One") || !strings.Contains(body, "vendor@example.com") {
		t.Errorf("body missing recipient details: %s", body)
	}
}

func TestCredentialsTemplateIncludesPassword(t *testing.T) {
	body, err := render(credentialsTemplate, CredentialNotification{
		Email:    "vendor@example.com",
		Username: "Vendor One",
		Password: "s3cretPassw0rd",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "s3cretPassw0rd") {
		t.Error("credentials mail must carry the generated password")
	}
}

func TestDevNotifierNeverFails(t *testing.T) {
	n := NewDevNotifier(testLogger())
	ctx := context.Background()
	if err := n.SendActivationConfirmation(ctx, ActivationNotification{Email: "a@b.c"}); err != nil {
		t.Fatalf("SendActivationConfirmation: %v", err)
	}
	if err := n.SendVendorCredentials(ctx, CredentialNotification{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("SendVendorCredentials: %v", err)
	}
}
