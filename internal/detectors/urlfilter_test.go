package detectors

import (
	"testing"
)

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("check https://example.com/page and http://other.net too")
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/page" {
		t.Errorf("first url: got %q", urls[0])
	}
}

func TestExtractURLsNone(t *testing.T) {
	if urls := ExtractURLs("no links in here"); urls != nil {
		t.Errorf("expected nil, got %v", urls)
	}
}

func TestSubdomainAllowed(t *testing.T) {
	if !IsAllowedDomain("sub.roblox.com", DefaultAllowedDomains) {
		t.Error("sub.roblox.com should match the roblox.com allow entry")
	}
}

func TestLookalikeDomainBlocked(t *testing.T) {
	if IsAllowedDomain("robloxx.com", DefaultAllowedDomains) {
		t.Error("robloxx.com must not match roblox.com")
	}
	if IsAllowedDomain("evilroblox.com", DefaultAllowedDomains) {
		t.Error("evilroblox.com must not match roblox.com")
	}
}

func TestBlockedURLs(t *testing.T) {
	blocked := BlockedURLs("join https://discord.gg/abc or https://free-robux.xyz/claim", nil)
	if len(blocked) != 1 {
		t.Fatalf("got %d blocked, want 1: %v", len(blocked), blocked)
	}
	if blocked[0] != "https://free-robux.xyz/claim" {
		t.Errorf("blocked url: got %q", blocked[0])
	}
}

func TestBlockedURLsCustomAllowList(t *testing.T) {
	allowed := []string{"mysite.org"}
	blocked := BlockedURLs("see https://mysite.org/info and https://roblox.com/home", allowed)
	if len(blocked) != 1 {
		t.Fatalf("got %d blocked, want 1: %v", len(blocked), blocked)
	}
	if blocked[0] != "https://roblox.com/home" {
		t.Errorf("configured allow-list should replace the defaults, got %q", blocked[0])
	}
}

func TestBlockedURLsEmptyMessage(t *testing.T) {
	if blocked := BlockedURLs("", nil); blocked != nil {
		t.Errorf("expected nil, got %v", blocked)
	}
}
