package authkit

import (
	"context"
	"net/http"
	"testing"

	"github.com/parceldesk/authkit/access"
)

func TestUpdateAccountStatusFoldsIntoState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testLoginBody))
	})
	mux.HandleFunc("/api/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{
			"accountStatus":"PENDING_VALIDATION","validationStatus":"PENDING",
			"limitedAccess":true,"requirements":["company_documents"]}}`))
	})

	m, _ := newTestManager(t, mux)
	if res := m.Login(context.Background(), Credentials{Email: "ops@acme.test", Password: "pw"}); !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}

	if err := m.UpdateAccountStatus(context.Background()); err != nil {
		t.Fatalf("status refresh failed: %v", err)
	}

	snap := m.Snapshot()
	if snap.AccountStatus != access.AccountPendingValidation {
		t.Fatalf("expected PENDING_VALIDATION, got %s", snap.AccountStatus)
	}
	if snap.AccessLevel != access.Limited {
		t.Fatalf("expected demotion to LIMITED, got %s", snap.AccessLevel)
	}
	if len(snap.Requirements) != 1 || snap.Requirements[0] != "company_documents" {
		t.Fatalf("expected requirements carried through, got %v", snap.Requirements)
	}
	if !snap.Decision().NeedsValidation() {
		t.Fatal("expected the policy view to flag pending validation")
	}
}

func TestUpdateAccountStatusReportsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	m, _ := newTestManager(t, mux)
	if err := m.UpdateAccountStatus(context.Background()); err == nil {
		t.Fatal("expected an error for the background caller to log")
	}
	if m.MetricsSnapshot().Counters[MetricStatusRefreshFailure] == 0 {
		t.Fatal("expected the failure to be counted")
	}
}

func TestCompleteProfilePromotesToLimited(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{
			"user":{"id":"u2","email":"p@acme.test","role":{"id":"r2","name":"member","permissions":[]}},
			"accessToken":"a1","refreshToken":"r1","expiresIn":900,
			"accountStatus":"INACTIVE","requiresProfileCompletion":true}}`))
	})
	mux.HandleFunc("/api/auth/complete-profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		w.Write([]byte(`{"success":true,"data":{
			"user":{"id":"u2","email":"p@acme.test","firstName":"Pat",
				"role":{"id":"r2","name":"member","permissions":["orders.read"]}},
			"accountStatus":"PENDING_VALIDATION","validationStatus":"PENDING"}}`))
	})

	m, _ := newTestManager(t, mux)
	if res := m.Login(context.Background(), Credentials{Email: "p@acme.test", Password: "pw"}); !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}

	res := m.CompleteProfile(context.Background(), ProfileData{"company": "Acme GmbH"})
	if !res.Success {
		t.Fatalf("complete profile failed: %s", res.Error)
	}
	if res.User == nil || res.User.FirstName != "Pat" {
		t.Fatalf("expected the replacement user, got %+v", res.User)
	}

	snap := m.Snapshot()
	if snap.AccessLevel != access.Limited {
		t.Fatalf("expected promotion to LIMITED, got %s", snap.AccessLevel)
	}
	if snap.AccountStatus != access.AccountPendingValidation {
		t.Fatalf("expected PENDING_VALIDATION, got %s", snap.AccountStatus)
	}
	if !snap.HasPermission("orders.read") {
		t.Fatal("expected the replaced user's permissions")
	}
}

func TestCompleteProfileValidationFailure(t *testing.T) {
	mux := statusOnlyMux()
	mux.HandleFunc("/api/auth/complete-profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"company name required"}`))
	})

	m, _ := newTestManager(t, mux)
	res := m.CompleteProfile(context.Background(), ProfileData{})

	if res.Success {
		t.Fatal("expected validation failure")
	}
	if res.Error != "company name required" {
		t.Fatalf("expected backend message, got %q", res.Error)
	}
}
