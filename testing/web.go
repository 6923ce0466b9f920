package testing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	stdtesting "testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Rig drives HTTP handlers with a miniredis-backed session, carrying the
// session cookie across requests the way a browser would.
type Rig struct {
	t        stdtesting.TB
	Redis    *miniredis.Miniredis
	Client   *redis.Client
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	User     *shared.CurrentUser
	cookie   string
}

// NewRig starts miniredis and builds session and CSRF managers over it.
func NewRig(t stdtesting.TB) *Rig {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Rig{
		t:        t,
		Redis:    mr,
		Client:   client,
		Sessions: shared.NewSessionManager(client, "test_session", time.Hour, false),
		CSRF:     shared.NewCSRFManager("csrfsecret"),
	}
}

// SignIn makes subsequent requests carry user in their context.
func (r *Rig) SignIn(user shared.CurrentUser) *Rig {
	r.User = &user
	return r
}

// Serve runs req through h with the rig's session and returns the recorder.
func (r *Rig) Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	r.t.Helper()
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: r.Sessions.CookieName(), Value: r.cookie})
	}
	sess, err := r.Sessions.Load(context.Background(), req)
	if err != nil {
		r.t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	if r.User != nil {
		ctx = shared.ContextWithUser(ctx, *r.User)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(ctx))
	if err := r.Sessions.Commit(context.Background(), rr, sess); err != nil {
		r.t.Fatalf("commit session: %v", err)
	}
	r.cookie = sess.ID
	return rr
}

// Get issues a GET for target.
func (r *Rig) Get(h http.Handler, target string) *httptest.ResponseRecorder {
	r.t.Helper()
	return r.Serve(h, httptest.NewRequest(http.MethodGet, target, nil))
}

// PostForm issues a urlencoded POST for target.
func (r *Rig) PostForm(h http.Handler, target string, values url.Values) *httptest.ResponseRecorder {
	r.t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r.Serve(h, req)
}

// Session reloads the current session from redis.
func (r *Rig) Session() *shared.Session {
	r.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: r.Sessions.CookieName(), Value: r.cookie})
	}
	sess, err := r.Sessions.Load(context.Background(), req)
	if err != nil {
		r.t.Fatalf("load session: %v", err)
	}
	return sess
}

// Flash pops the oldest pending flash message text, or "".
func (r *Rig) Flash() string {
	r.t.Helper()
	msg := r.Session().PopFlash()
	if msg == nil {
		return ""
	}
	return msg.Message
}
