package authkit

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/parceldesk/authkit/access"
)

func TestLoginFullAccess(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testLoginBody))
	})

	m, mr := newTestManager(t, mux)
	res := m.Login(context.Background(), Credentials{Email: "ops@acme.test", Password: "pw"})

	if !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}
	if res.AccessLevel != access.Full {
		t.Fatalf("expected FULL, got %s", res.AccessLevel)
	}
	if res.RedirectTo != RedirectHome {
		t.Fatalf("expected redirect home, got %q", res.RedirectTo)
	}
	if res.User == nil || res.User.ID != "u1" {
		t.Fatalf("expected user u1, got %+v", res.User)
	}

	snap := m.Snapshot()
	if !snap.IsAuthenticated || !snap.Initialized {
		t.Fatalf("expected authenticated initialized state, got %+v", snap)
	}
	if !snap.HasPermission("orders.read") {
		t.Fatal("wildcard role must grant everything")
	}

	if !mr.Exists("ak:token:access") || !mr.Exists("ak:token:refresh") {
		t.Fatal("expected tokens in durable store")
	}
	if !mr.Exists("auth_login") {
		t.Fatal("expected login marker")
	}
	if mr.Exists("auth_logout") {
		t.Fatal("expected logout marker cleared")
	}
}

func TestLoginDenied(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{
			"accessDenied":true,"accountStatus":"PENDING",
			"message":"account awaiting approval"}}`))
	})

	m, mr := newTestManager(t, mux)
	res := m.Login(context.Background(), Credentials{Email: "new@acme.test", Password: "pw"})

	if res.Success {
		t.Fatal("expected denial")
	}
	if res.Error != "account awaiting approval" {
		t.Fatalf("expected backend message, got %q", res.Error)
	}
	if res.AccessLevel != access.NoAccess {
		t.Fatalf("expected NO_ACCESS, got %s", res.AccessLevel)
	}
	if res.AccountStatus != access.AccountPending {
		t.Fatalf("expected PENDING, got %s", res.AccountStatus)
	}

	snap := m.Snapshot()
	if snap.IsAuthenticated {
		t.Fatal("denied login must not authenticate")
	}
	if snap.AccountStatus != access.AccountPending {
		t.Fatalf("denied status must be retained, got %s", snap.AccountStatus)
	}
	if mr.Exists("ak:token:access") {
		t.Fatal("denied login must not store tokens")
	}
}

func TestLoginProfileOnlyRedirect(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{
			"user":{"id":"u2","email":"p@acme.test","role":{"id":"r2","name":"member","permissions":[]}},
			"accessToken":"a1","refreshToken":"r1","expiresIn":900,
			"accountStatus":"INACTIVE","requiresProfileCompletion":true}}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.Login(context.Background(), Credentials{Email: "p@acme.test", Password: "pw"})

	if !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}
	if res.AccessLevel != access.ProfileOnly {
		t.Fatalf("expected PROFILE_ONLY, got %s", res.AccessLevel)
	}
	if res.RedirectTo != RedirectProfileCompletion {
		t.Fatalf("expected profile-completion redirect, got %q", res.RedirectTo)
	}
}

func TestLoginInactiveAccountRedirectsEvenWithAccess(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{
			"user":{"id":"u3","email":"l@acme.test","role":{"id":"r2","name":"member","permissions":[]}},
			"accessToken":"a1","refreshToken":"r1","expiresIn":900,
			"accountStatus":"INACTIVE","limitedAccess":true}}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.Login(context.Background(), Credentials{Email: "l@acme.test", Password: "pw"})

	if !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}
	if res.AccessLevel != access.Limited {
		t.Fatalf("expected LIMITED, got %s", res.AccessLevel)
	}
	if res.RedirectTo != RedirectProfileCompletion {
		t.Fatalf("inactive account must land on profile completion, got %q", res.RedirectTo)
	}
}

func TestLoginMalformedPayload(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"user":{"id":"u1"}}}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.Login(context.Background(), Credentials{Email: "x@acme.test", Password: "pw"})

	if res.Success {
		t.Fatal("expected failure for session payload without tokens")
	}
	if res.Error != ErrMalformedResponse.Error() {
		t.Fatalf("expected generic malformed error, got %q", res.Error)
	}
	if m.Snapshot().IsAuthenticated {
		t.Fatal("malformed login must not authenticate")
	}
}

func TestLoginTransportFailure(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.Login(context.Background(), Credentials{Email: "x@acme.test", Password: "pw"})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "slow down" {
		t.Fatalf("expected backend message, got %q", res.Error)
	}
}

func TestLoginSupersededByLogout(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Write([]byte(testLoginBody))
	})

	m, mr := newTestManager(t, mux)

	done := make(chan LoginResult, 1)
	go func() {
		done <- m.Login(context.Background(), Credentials{Email: "ops@acme.test", Password: "pw"})
	}()

	<-entered
	m.Logout(context.Background())
	close(release)

	res := <-done
	if res.Success {
		t.Fatal("login resolving after logout must not succeed")
	}
	if res.Error != ErrSessionSuperseded.Error() {
		t.Fatalf("expected superseded error, got %q", res.Error)
	}
	if m.Snapshot().IsAuthenticated {
		t.Fatal("session must stay logged out")
	}

	m.Close()
	if mr.Exists("ak:token:access") {
		t.Fatal("stale login tokens must be revoked")
	}
}

func TestRegisterNeverAuthenticates(t *testing.T) {
	var hits atomic.Int64
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"success":true,"data":{
			"accountStatus":"PENDING","message":"check your inbox",
			"requirements":["email_verification","company_documents"]}}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.Register(context.Background(), RegisterData{Email: "new@acme.test", Password: "pw"})

	if !res.Success {
		t.Fatalf("register failed: %s", res.Error)
	}
	if res.AccountStatus != access.AccountPending {
		t.Fatalf("expected PENDING, got %s", res.AccountStatus)
	}
	if res.Message != "check your inbox" {
		t.Fatalf("expected backend message, got %q", res.Message)
	}
	if len(res.Requirements) != 2 {
		t.Fatalf("expected requirements carried through, got %v", res.Requirements)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 register call, got %d", hits.Load())
	}

	snap := m.Snapshot()
	if snap.IsAuthenticated {
		t.Fatal("registration must never authenticate")
	}
	if snap.AccountStatus != access.AccountPending {
		t.Fatalf("expected status stored for the UI, got %s", snap.AccountStatus)
	}
}

func TestRegisterFailure(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"email already registered"}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.Register(context.Background(), RegisterData{Email: "dup@acme.test", Password: "pw"})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "email already registered" {
		t.Fatalf("expected backend message, got %q", res.Error)
	}
}
