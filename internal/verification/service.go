package verification

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/roblox"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

// PendingTTL is how long a verification challenge stays valid.
const PendingTTL = 30 * time.Minute

var (
	// ErrAlreadyVerified is returned by Verify when the Discord user
	// already has a Roblox binding. Reverify is the path for that.
	ErrAlreadyVerified = errors.New("already verified")
	// ErrRobloxUserNotFound means the given username resolves to no
	// Roblox account.
	ErrRobloxUserNotFound = errors.New("roblox user not found")
	// ErrNoPending is returned by CheckVerify when no challenge is
	// outstanding for the user.
	ErrNoPending = errors.New("no pending verification")
	// ErrExpired means the challenge passed its TTL. The pending row is
	// removed; the user must run Verify again.
	ErrExpired = errors.New("verification code expired")
	// ErrCodeNotFound means the profile blurb was fetched but does not
	// contain the challenge code.
	ErrCodeNotFound = errors.New("verification code not found in profile")
	// ErrInsufficientInfo means the Roblox profile description is empty,
	// usually a private or untouched profile.
	ErrInsufficientInfo = errors.New("roblox profile has no description")
	// ErrNotVerified is returned by Whois for users with no binding.
	ErrNotVerified = errors.New("user is not verified")
)

// RobloxAPI is the slice of the Roblox client the service needs.
type RobloxAPI interface {
	GetUserByUsername(username string) (*roblox.User, error)
	GetUserBlurb(userID int64) (string, error)
}

// Service implements the profile-code verification flow: Verify issues
// a challenge, the user pastes the code into their Roblox profile
// description, and CheckVerify confirms it and records the binding.
type Service struct {
	store storage.Store
	api   RobloxAPI
	now   func() time.Time
}

func NewService(store storage.Store, api RobloxAPI) *Service {
	return &Service{store: store, api: api, now: time.Now}
}

// Verify starts a verification challenge for the Discord user. Any
// previous pending challenge for the same user is replaced.
func (s *Service) Verify(discordUserID, serverID, robloxUsername string) (*storage.PendingVerification, error) {
	existing, err := s.store.GetRobloxVerificationByDiscordID(discordUserID)
	if err != nil {
		return nil, fmt.Errorf("check existing verification: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyVerified
	}

	return s.issueChallenge(discordUserID, serverID, robloxUsername)
}

// Reverify starts a challenge for a user who may already be verified.
// Any existing binding is logged for the audit trail and then removed;
// the user is unverified until the new challenge succeeds. The previous
// binding is also returned so the caller can mention it.
func (s *Service) Reverify(discordUserID, serverID, robloxUsername string) (*storage.PendingVerification, *storage.RobloxVerification, error) {
	previous, err := s.store.GetRobloxVerificationByDiscordID(discordUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing verification: %w", err)
	}
	if previous != nil {
		logging.Info("User %s re-verifying, removing previous binding %s (%d)",
			discordUserID, previous.RobloxUsername, previous.RobloxUserID)
		if err := s.store.RemoveRobloxVerification(discordUserID); err != nil {
			return nil, nil, fmt.Errorf("remove previous binding: %w", err)
		}
	}

	pending, err := s.issueChallenge(discordUserID, serverID, robloxUsername)
	if err != nil {
		return nil, nil, err
	}
	return pending, previous, nil
}

func (s *Service) issueChallenge(discordUserID, serverID, robloxUsername string) (*storage.PendingVerification, error) {
	user, err := s.api.GetUserByUsername(robloxUsername)
	if err != nil {
		if errors.Is(err, roblox.ErrUserNotFound) {
			return nil, ErrRobloxUserNotFound
		}
		return nil, fmt.Errorf("resolve roblox username: %w", err)
	}

	code, err := roblox.GenerateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	pending := &storage.PendingVerification{
		DiscordUserID:    discordUserID,
		VerificationCode: code,
		ServerID:         serverID,
		RobloxUsername:   user.Name,
		RobloxUserID:     user.ID,
		CreatedAt:        now,
		ExpiresAt:        now.Add(PendingTTL),
	}
	if err := s.store.CreatePendingVerification(pending); err != nil {
		return nil, fmt.Errorf("save pending verification: %w", err)
	}

	logging.Info("Issued verification code for user %s -> roblox %s (%d)",
		discordUserID, user.Name, user.ID)
	return pending, nil
}

// CheckVerify looks up the user's pending challenge, fetches their
// Roblox profile description and, if it contains the code, records the
// binding. A successful check replaces any previous binding.
func (s *Service) CheckVerify(discordUserID string) (*storage.RobloxVerification, error) {
	pending, err := s.store.GetPendingVerificationByDiscordID(discordUserID)
	if err != nil {
		return nil, fmt.Errorf("lookup pending verification: %w", err)
	}
	if pending == nil {
		return nil, ErrNoPending
	}

	if s.now().After(pending.ExpiresAt) {
		if err := s.store.RemovePendingVerification(pending.ID); err != nil {
			logging.Warn("Failed to remove expired verification %d: %v", pending.ID, err)
		}
		return nil, ErrExpired
	}

	blurb, err := s.api.GetUserBlurb(pending.RobloxUserID)
	if err != nil {
		return nil, fmt.Errorf("fetch roblox profile: %w", err)
	}
	if strings.TrimSpace(blurb) == "" {
		return nil, ErrInsufficientInfo
	}
	if !strings.Contains(blurb, pending.VerificationCode) {
		return nil, ErrCodeNotFound
	}

	if err := s.store.RemoveRobloxVerification(discordUserID); err != nil {
		return nil, fmt.Errorf("clear previous binding: %w", err)
	}

	v := &storage.RobloxVerification{
		DiscordUserID:  discordUserID,
		RobloxUserID:   pending.RobloxUserID,
		RobloxUsername: pending.RobloxUsername,
		ServerID:       pending.ServerID,
		VerifiedAt:     s.now(),
	}
	if err := s.store.CreateRobloxVerification(v); err != nil {
		return nil, fmt.Errorf("save verification: %w", err)
	}
	if err := s.store.RemovePendingVerification(pending.ID); err != nil {
		logging.Warn("Failed to remove completed verification %d: %v", pending.ID, err)
	}

	logging.Info("User %s verified as %s (%d)", discordUserID, v.RobloxUsername, v.RobloxUserID)
	return v, nil
}

// Whois returns the Roblox binding for a Discord user.
func (s *Service) Whois(discordUserID string) (*storage.RobloxVerification, error) {
	v, err := s.store.GetRobloxVerificationByDiscordID(discordUserID)
	if err != nil {
		return nil, fmt.Errorf("lookup verification: %w", err)
	}
	if v == nil {
		return nil, ErrNotVerified
	}
	return v, nil
}
