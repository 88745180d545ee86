package roblox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
)

const requestTimeout = 5 * time.Second

// ErrUserNotFound means the Roblox username does not resolve to an
// account.
var ErrUserNotFound = errors.New("roblox user not found")

// ErrNotInGroup means the user holds no role in the configured group.
var ErrNotInGroup = errors.New("user is not in the group")

// User is the subset of the Roblox user payload the bot cares about.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroupRole is one rank in a Roblox group's role list.
type GroupRole struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Client talks to the Roblox web APIs. The security cookie is only
// required for ranking operations; lookups work unauthenticated.
type Client struct {
	http      *fasthttp.Client
	cookie    string
	csrfToken string
}

func NewClient(cookie string) *Client {
	return &Client{
		http: &fasthttp.Client{
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         requestTimeout,
			WriteTimeout:        requestTimeout,
		},
		cookie: cookie,
	}
}

// RefreshConnection validates the security cookie against the
// authenticated-user endpoint. Lookup-only deployments can skip it.
func (c *Client) RefreshConnection() error {
	if c.cookie == "" {
		return errors.New("no roblox cookie configured")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("https://users.roblox.com/v1/users/authenticated")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetCookie(".ROBLOSECURITY", c.cookie)

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return fmt.Errorf("roblox auth check: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("roblox auth check: status %d", resp.StatusCode())
	}

	var authed User
	if err := json.Unmarshal(resp.Body(), &authed); err != nil {
		return fmt.Errorf("roblox auth check: %w", err)
	}
	logging.Info("Roblox connection established as %s (%d)", authed.Name, authed.ID)
	return nil
}

// GetUserByUsername resolves an exact username to a Roblox account.
func (c *Client) GetUserByUsername(username string) (*User, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"usernames":          []string{username},
		"excludeBannedUsers": true,
	})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("https://users.roblox.com/v1/usernames/users")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return nil, fmt.Errorf("roblox username lookup: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("roblox username lookup: status %d", resp.StatusCode())
	}

	var result struct {
		Data []User `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("roblox username lookup: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, ErrUserNotFound
	}
	return &result.Data[0], nil
}

// GetUserBlurb fetches a user's profile description ("About" text).
func (c *Client) GetUserBlurb(userID int64) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("https://users.roblox.com/v1/users/%d", userID))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return "", fmt.Errorf("roblox profile fetch: %w", err)
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return "", ErrUserNotFound
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("roblox profile fetch: status %d", resp.StatusCode())
	}

	var profile struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(resp.Body(), &profile); err != nil {
		return "", fmt.Errorf("roblox profile fetch: %w", err)
	}
	return profile.Description, nil
}

// GetGroupRoles lists the ranks of a group, ordered by rank number.
func (c *Client) GetGroupRoles(groupID int64) ([]GroupRole, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("https://groups.roblox.com/v1/groups/%d/roles", groupID))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return nil, fmt.Errorf("roblox group roles: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("roblox group roles: status %d", resp.StatusCode())
	}

	var result struct {
		Roles []GroupRole `json:"roles"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("roblox group roles: %w", err)
	}
	return result.Roles, nil
}

// GetRankInGroup returns the user's rank number and role name in the
// group, or ErrNotInGroup.
func (c *Client) GetRankInGroup(groupID, userID int64) (int, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("https://groups.roblox.com/v2/users/%d/groups/roles", userID))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return 0, "", fmt.Errorf("roblox group rank: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, "", fmt.Errorf("roblox group rank: status %d", resp.StatusCode())
	}

	var result struct {
		Data []struct {
			Group struct {
				ID int64 `json:"id"`
			} `json:"group"`
			Role struct {
				Name string `json:"name"`
				Rank int    `json:"rank"`
			} `json:"role"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return 0, "", fmt.Errorf("roblox group rank: %w", err)
	}

	for _, membership := range result.Data {
		if membership.Group.ID == groupID {
			return membership.Role.Rank, membership.Role.Name, nil
		}
	}
	return 0, "", ErrNotInGroup
}

// SetRank assigns a group role to a user. Requires the security cookie.
// Roblox rejects the first write with 403 and a fresh CSRF token in the
// response header; the request is retried once with that token.
func (c *Client) SetRank(groupID, userID, roleID int64) error {
	if c.cookie == "" {
		return errors.New("ranking requires a roblox cookie")
	}

	status, err := c.doRankRequest(groupID, userID, roleID)
	if err != nil {
		return err
	}
	if status == fasthttp.StatusForbidden && c.csrfToken != "" {
		status, err = c.doRankRequest(groupID, userID, roleID)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return fmt.Errorf("roblox rank update: status %d", status)
	}
	logging.Info("Ranked Roblox user %d to role %d in group %d", userID, roleID, groupID)
	return nil
}

func (c *Client) doRankRequest(groupID, userID, roleID int64) (int, error) {
	payload, _ := json.Marshal(map[string]int64{"roleId": roleID})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("https://groups.roblox.com/v1/groups/%d/users/%d", groupID, userID))
	req.Header.SetMethod(fasthttp.MethodPatch)
	req.Header.SetContentType("application/json")
	req.Header.SetCookie(".ROBLOSECURITY", c.cookie)
	if c.csrfToken != "" {
		req.Header.Set("X-CSRF-TOKEN", c.csrfToken)
	}
	req.SetBody(payload)

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return 0, fmt.Errorf("roblox rank update: %w", err)
	}

	if token := resp.Header.Peek("x-csrf-token"); len(token) > 0 {
		c.csrfToken = string(token)
	}
	return resp.StatusCode(), nil
}
