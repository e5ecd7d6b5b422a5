package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rhythmtaneja/SignFlow/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestInviteService(t *testing.T, database *gorm.DB, audit AuditRecorder, inviteTTL time.Duration) *InviteService {
	t.Helper()
	if audit == nil {
		audit = &recordingAudit{}
	}
	cfg := config.Default()
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.InviteTTL = inviteTTL
	cfg.Server.ClientURL = "http://client.test"
	cfg.SMTP.Enabled = false
	return NewInviteService(database, cfg, audit, zap.NewNop())
}

func TestInviteRoundTrip(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	doc := seedDocument(t, database, owner.ID, "contract.pdf")
	audit := &recordingAudit{}
	svc := newTestInviteService(t, database, audit, time.Hour)
	ctx := context.Background()

	link, err := svc.Invite(ctx, doc.ID, "guest@example.com", owner.ID, RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(link, "http://client.test/sign/") {
		t.Fatalf("link = %q", link)
	}

	token := strings.TrimPrefix(link, "http://client.test/sign/")
	gotDoc, gotEmail, err := svc.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if gotDoc != doc.ID || gotEmail != "guest@example.com" {
		t.Errorf("Verify = (%q, %q)", gotDoc, gotEmail)
	}

	entries := audit.all()
	if len(entries) != 1 || entries[0].Action != "invite_sent" || entries[0].ExternalEmail != "guest@example.com" {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestInviteValidation(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	doc := seedDocument(t, database, owner.ID, "contract.pdf")
	svc := newTestInviteService(t, database, nil, time.Hour)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, "", "guest@example.com", owner.ID, RequestMeta{}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing document id = %v, want ErrValidation", err)
	}
	if _, err := svc.Invite(ctx, doc.ID, "", owner.ID, RequestMeta{}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing email = %v, want ErrValidation", err)
	}
	if _, err := svc.Invite(ctx, "no-such-doc", "guest@example.com", owner.ID, RequestMeta{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing document = %v, want ErrNotFound", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	doc := seedDocument(t, database, owner.ID, "contract.pdf")
	svc := newTestInviteService(t, database, nil, time.Hour)

	if _, _, err := svc.Verify("not-a-token"); !errors.Is(err, ErrValidation) {
		t.Errorf("garbage token = %v, want ErrValidation", err)
	}

	// A token signed under a different secret does not verify.
	other := newTestInviteService(t, database, nil, time.Hour)
	other.security.JWTSecret = "other-secret"
	link, err := other.Invite(context.Background(), doc.ID, "guest@example.com", owner.ID, RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	token := link[strings.LastIndex(link, "/")+1:]
	if _, _, err := svc.Verify(token); !errors.Is(err, ErrValidation) {
		t.Errorf("cross-secret token = %v, want ErrValidation", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	doc := seedDocument(t, database, owner.ID, "contract.pdf")
	svc := newTestInviteService(t, database, nil, -time.Minute)

	link, err := svc.Invite(context.Background(), doc.ID, "guest@example.com", owner.ID, RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	token := link[strings.LastIndex(link, "/")+1:]
	if _, _, err := svc.Verify(token); !errors.Is(err, ErrValidation) {
		t.Errorf("expired token = %v, want ErrValidation", err)
	}
}
