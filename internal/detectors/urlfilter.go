package detectors

import (
	"net/url"
	"regexp"
	"strings"
)

// Domains exempt from URL blocking when a server has not configured its
// own allow-list.
var DefaultAllowedDomains = []string{
	"roblox.com",
	"www.roblox.com",
	"docs.google.com",
	"drive.google.com",
	"discord.com",
	"discord.gg",
	"media.discordapp.net",
	"cdn.discordapp.com",
	"tenor.com",
	"giphy.com",
	"github.com",
	"youtube.com",
	"youtu.be",
	"twitch.tv",
}

var urlPattern = regexp.MustCompile(`https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&//=]*)`)

// ExtractURLs returns every http(s) URL found in the message text.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return urlPattern.FindAllString(text, -1)
}

// ExtractDomain parses a URL and returns its lowercased host, or ""
// when the URL cannot be parsed.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// IsAllowedDomain reports whether a host matches the allow-list, either
// exactly or as a subdomain of an allowed domain. Suffix matching
// requires a dot boundary so robloxx.com never matches roblox.com.
func IsAllowedDomain(domain string, allowed []string) bool {
	for _, a := range allowed {
		if domain == a || strings.HasSuffix(domain, "."+a) {
			return true
		}
	}
	return false
}

// BlockedURLs returns the URLs in text whose domains are not on the
// allow-list. An empty configured list falls back to the defaults.
func BlockedURLs(text string, allowed []string) []string {
	urls := ExtractURLs(text)
	if len(urls) == 0 {
		return nil
	}

	if len(allowed) == 0 {
		allowed = DefaultAllowedDomains
	}

	var blocked []string
	for _, u := range urls {
		domain := ExtractDomain(u)
		if domain != "" && !IsAllowedDomain(domain, allowed) {
			blocked = append(blocked, u)
		}
	}
	return blocked
}
