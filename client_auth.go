package heavyride

import (
	"context"
	"net/url"
	"time"

	"github.com/teamqeematech/heavyride-go/session"
	"github.com/teamqeematech/heavyride-go/transport"
)

// tokenCandidatePaths are probed in order against auth response payloads.
// The backend has shipped several envelope shapes; the first path that
// normalizes to a usable token wins.
var tokenCandidatePaths = [][]string{
	{"data", "token"},
	{"data", "access_token"},
	{"token"},
	{"auth_token"},
	{"access_token"},
}

// userCandidatePaths are probed in order for the profile object.
var userCandidatePaths = [][]string{
	{"data", "user"},
	{"user"},
	{"data"},
}

// Login exchanges credentials for a session. On success the extracted
// token+user pair is committed to both stores and the raw response payload is
// returned. On failure the server message is recorded as LastError and the
// error is surfaced unchanged.
func (c *Client) Login(ctx context.Context, email, password string) (map[string]any, error) {
	return c.authenticate(ctx, transport.Request{
		Method: "POST",
		Path:   "login",
		Body:   map[string]string{"email": email, "password": password},
	}, MetricLoginSuccess, MetricLoginFailure, "login")
}

// Register creates an account from a multipart form (profile fields plus
// optional image upload) and commits the returned session.
func (c *Client) Register(ctx context.Context, form *transport.Form) (map[string]any, error) {
	return c.authenticate(ctx, transport.Request{
		Method: "POST",
		Path:   "register",
		Body:   form,
	}, MetricRegisterSuccess, MetricRegisterFailure, "register")
}

func (c *Client) authenticate(ctx context.Context, req transport.Request, successID, failureID MetricID, eventType string) (map[string]any, error) {
	c.session.BeginAuthenticating()

	resp, err := c.do(ctx, req)
	if err != nil {
		c.authFailed(eventType, failureID, err)
		return nil, err
	}

	payload, err := resp.Payload()
	if err != nil {
		c.authFailed(eventType, failureID, err)
		return nil, err
	}

	token, user, ok := extractAuth(payload)
	if !ok {
		c.authFailed(eventType, failureID, ErrInvalidAuthResponse)
		return nil, ErrInvalidAuthResponse
	}

	if err := c.session.Commit(ctx, user, token); err != nil {
		c.authFailed(eventType, failureID, err)
		return nil, err
	}

	c.metrics.Inc(successID)
	c.auditEvent(eventType+"_success", true, nil)
	c.logger.Info().Str("role", c.session.Role()).Msg(eventType + " committed")
	return payload, nil
}

func (c *Client) authFailed(eventType string, failureID MetricID, err error) {
	c.session.AuthFailed(ErrorMessage(err, err.Error()))
	c.metrics.Inc(failureID)
	c.auditEvent(eventType+"_failure", false, err)
}

// extractAuth probes the candidate paths for a normalizable token and a user
// object.
func extractAuth(payload map[string]any) (string, map[string]any, bool) {
	var token string
	for _, path := range tokenCandidatePaths {
		value, ok := lookupPath(payload, path)
		if !ok {
			continue
		}
		if normalized, ok := session.NormalizeToken(value); ok {
			token = normalized
			break
		}
	}
	if token == "" {
		return "", nil, false
	}

	for _, path := range userCandidatePaths {
		value, ok := lookupPath(payload, path)
		if !ok {
			continue
		}
		if user, ok := value.(map[string]any); ok && len(user) > 0 {
			return token, user, true
		}
	}
	return "", nil, false
}

func lookupPath(payload map[string]any, path []string) (any, bool) {
	var current any = payload
	for _, segment := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// FetchProfile refreshes the user record from GET user. The token is
// retained; only the profile half of the session is replaced.
func (c *Client) FetchProfile(ctx context.Context) (map[string]any, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	resp, err := c.do(ctx, transport.Request{Method: "GET", Path: "user"})
	if err != nil {
		return nil, err
	}

	payload, err := resp.Payload()
	if err != nil {
		return nil, err
	}

	user := payload
	for _, path := range userCandidatePaths {
		if value, ok := lookupPath(payload, path); ok {
			if object, ok := value.(map[string]any); ok && len(object) > 0 {
				user = object
				break
			}
		}
	}

	if err := c.session.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	c.metrics.Inc(MetricProfileRefreshed)
	return user, nil
}

// hydrate runs the one-shot automatic profile fetch after a token-only
// restore. Failures leave the session manager to reconcile state; a 401 has
// already torn persisted state down centrally.
func (c *Client) hydrate(ctx context.Context) {
	if _, err := c.FetchProfile(ctx); err != nil {
		c.session.HydrationFailed()
		c.logger.Warn().Err(err).Msg("profile hydration failed")
	}
}

// Logout posts to the logout endpoint best-effort, then unconditionally
// clears both stores and in-memory state. A dead backend never blocks local
// teardown.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, transport.Request{Method: "POST", Path: "logout"})
	if err != nil {
		c.logger.Warn().Err(err).Msg("logout request failed, clearing session anyway")
	}

	c.session.Clear(ctx)
	c.metrics.Inc(MetricLogout)
	c.auditEvent("logout", true, nil)
	return nil
}

// SendVerificationCode asks the backend to (re)send the account verification
// code for the authenticated user.
func (c *Client) SendVerificationCode(ctx context.Context) error {
	_, err := c.do(ctx, transport.Request{Method: "POST", Path: "send-verification-code"})
	return err
}

// VerifyCode submits the account verification code.
func (c *Client) VerifyCode(ctx context.Context, code string) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "verify-code",
		Body:   map[string]string{"code": code},
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// ForgotPassword starts the password reset flow for the given email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "forgot-password",
		Body:   map[string]string{"email": email},
	})
	return err
}

// ResetPassword completes the password reset flow.
func (c *Client) ResetPassword(ctx context.Context, payload map[string]any) error {
	_, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "reset-password",
		Body:   payload,
	})
	return err
}

// UpdateProfile sends a multipart profile update through the backend's
// POST+_method=PUT override and refreshes the stored user record from the
// response when one is returned.
func (c *Client) UpdateProfile(ctx context.Context, form *transport.Form) (map[string]any, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "update",
		Body:   form,
		Query:  methodPut(),
	})
	if err != nil {
		return nil, err
	}

	payload, err := resp.Payload()
	if err != nil {
		return nil, err
	}

	for _, path := range userCandidatePaths {
		if value, ok := lookupPath(payload, path); ok {
			if user, ok := value.(map[string]any); ok && len(user) > 0 {
				if err := c.session.UpdateUser(ctx, user); err != nil {
					return nil, err
				}
				break
			}
		}
	}
	return payload, nil
}

// DeleteAccount removes the authenticated account, then clears the session.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	if _, err := c.do(ctx, transport.Request{Method: "DELETE", Path: "delete-account"}); err != nil {
		return err
	}

	c.session.Clear(ctx)
	c.auditEvent("account_deleted", true, nil)
	return nil
}

func (c *Client) auditEvent(eventType string, success bool, err error) {
	record := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Role:      c.session.Role(),
		Success:   success,
	}
	if err != nil {
		record.Error = err.Error()
	}
	c.audit.Emit(context.Background(), record)
}

// methodPut is the query override the backend expects on mutation-style
// POSTs.
func methodPut() url.Values {
	values := url.Values{}
	values.Set("_method", "PUT")
	return values
}
