package verification

import (
	"errors"
	"testing"
	"time"

	"github.com/joelikes8/Discord-CBA-Bot/internal/roblox"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

type fakeRoblox struct {
	users  map[string]*roblox.User
	blurbs map[int64]string
}

func (f *fakeRoblox) GetUserByUsername(username string) (*roblox.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, roblox.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRoblox) GetUserBlurb(userID int64) (string, error) {
	return f.blurbs[userID], nil
}

func newTestService(t *testing.T) (*Service, *fakeRoblox, storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	api := &fakeRoblox{
		users:  map[string]*roblox.User{"builderman": {ID: 156, Name: "builderman"}},
		blurbs: map[int64]string{},
	}
	return NewService(store, api), api, store
}

func TestVerifyIssuesChallenge(t *testing.T) {
	svc, _, _ := newTestService(t)

	pending, err := svc.Verify("discord1", "guild1", "builderman")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if pending.RobloxUserID != 156 || pending.RobloxUsername != "builderman" {
		t.Errorf("pending resolved wrong account: %+v", pending)
	}
	if len(pending.VerificationCode) != 8 {
		t.Errorf("code length: got %d, want 8", len(pending.VerificationCode))
	}
	if !pending.ExpiresAt.After(pending.CreatedAt) {
		t.Error("expiry must be after creation")
	}
}

func TestVerifyUnknownUsername(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Verify("discord1", "guild1", "nosuchuser")
	if !errors.Is(err, ErrRobloxUserNotFound) {
		t.Errorf("got %v, want ErrRobloxUserNotFound", err)
	}
}

func TestCheckVerifyBeforeCodePlaced(t *testing.T) {
	svc, api, store := newTestService(t)

	api.blurbs[156] = "just my normal profile text"
	if _, err := svc.Verify("discord1", "guild1", "builderman"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	_, err := svc.CheckVerify("discord1")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("got %v, want ErrCodeNotFound", err)
	}

	// A failed check keeps the challenge alive for a retry.
	pending, err := store.GetPendingVerificationByDiscordID("discord1")
	if err != nil {
		t.Fatalf("lookup pending: %v", err)
	}
	if pending == nil {
		t.Error("pending challenge should survive a failed check")
	}
}

func TestCheckVerifySuccess(t *testing.T) {
	svc, api, store := newTestService(t)

	pending, err := svc.Verify("discord1", "guild1", "builderman")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	api.blurbs[156] = "hello! my code is " + pending.VerificationCode + " thanks"

	v, err := svc.CheckVerify("discord1")
	if err != nil {
		t.Fatalf("checkverify: %v", err)
	}
	if v.RobloxUserID != 156 || v.RobloxUsername != "builderman" {
		t.Errorf("wrong binding: %+v", v)
	}

	leftover, err := store.GetPendingVerificationByDiscordID("discord1")
	if err != nil {
		t.Fatalf("lookup pending: %v", err)
	}
	if leftover != nil {
		t.Error("pending challenge should be removed after success")
	}

	// A second verify attempt now reports the existing binding.
	if _, err := svc.Verify("discord1", "guild1", "builderman"); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("got %v, want ErrAlreadyVerified", err)
	}
}

func TestCheckVerifyEmptyProfile(t *testing.T) {
	svc, api, _ := newTestService(t)

	if _, err := svc.Verify("discord1", "guild1", "builderman"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	api.blurbs[156] = "   "

	if _, err := svc.CheckVerify("discord1"); !errors.Is(err, ErrInsufficientInfo) {
		t.Errorf("got %v, want ErrInsufficientInfo", err)
	}
}

func TestCheckVerifyNoPending(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.CheckVerify("discord1"); !errors.Is(err, ErrNoPending) {
		t.Errorf("got %v, want ErrNoPending", err)
	}
}

func TestCheckVerifyExpired(t *testing.T) {
	svc, api, store := newTestService(t)

	pending, err := svc.Verify("discord1", "guild1", "builderman")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	api.blurbs[156] = pending.VerificationCode

	svc.now = func() time.Time { return pending.ExpiresAt.Add(time.Minute) }

	if _, err := svc.CheckVerify("discord1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}

	// Expired challenges are removed, not left to linger.
	leftover, err := store.GetPendingVerificationByDiscordID("discord1")
	if err != nil {
		t.Fatalf("lookup pending: %v", err)
	}
	if leftover != nil {
		t.Error("expired challenge should be removed")
	}
}

func TestReverifyReplacesBinding(t *testing.T) {
	svc, api, _ := newTestService(t)
	api.users["shedletsky"] = &roblox.User{ID: 261, Name: "shedletsky"}

	pending, err := svc.Verify("discord1", "guild1", "builderman")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	api.blurbs[156] = pending.VerificationCode
	if _, err := svc.CheckVerify("discord1"); err != nil {
		t.Fatalf("checkverify: %v", err)
	}

	newPending, previous, err := svc.Reverify("discord1", "guild1", "shedletsky")
	if err != nil {
		t.Fatalf("reverify: %v", err)
	}
	if previous == nil || previous.RobloxUsername != "builderman" {
		t.Errorf("previous binding: got %+v, want builderman", previous)
	}

	// The old binding is removed as soon as re-verification starts.
	if _, err := svc.Whois("discord1"); !errors.Is(err, ErrNotVerified) {
		t.Errorf("got %v, want ErrNotVerified while challenge is pending", err)
	}

	api.blurbs[261] = newPending.VerificationCode
	if _, err := svc.CheckVerify("discord1"); err != nil {
		t.Fatalf("checkverify after reverify: %v", err)
	}

	v, err := svc.Whois("discord1")
	if err != nil {
		t.Fatalf("whois: %v", err)
	}
	if v.RobloxUsername != "shedletsky" || v.RobloxUserID != 261 {
		t.Errorf("binding not replaced: %+v", v)
	}
}

func TestWhoisNotVerified(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Whois("stranger"); !errors.Is(err, ErrNotVerified) {
		t.Errorf("got %v, want ErrNotVerified", err)
	}
}
