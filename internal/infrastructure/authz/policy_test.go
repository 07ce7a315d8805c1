package authz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func TestAuthorizeExactGrant(t *testing.T) {
	a := NewPolicyAuthorizer(Policy{Grants: []Grant{
		{TenantID: "acme", UserID: "analyst-1", Actions: []string{"DRAFT", "REVIEW"}},
	}})

	if err := a.Authorize(context.Background(), "analyst-1", "acme", "DRAFT"); err != nil {
		t.Fatalf("granted action must pass: %v", err)
	}
	if err := a.Authorize(context.Background(), "analyst-1", "acme", "BENCHMARK"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("ungranted action must be denied, got %v", err)
	}
}

func TestAuthorizeWildcards(t *testing.T) {
	a := NewPolicyAuthorizer(Policy{Grants: []Grant{
		{TenantID: "acme", UserID: "*", Actions: []string{"*"}},
	}})

	if err := a.Authorize(context.Background(), "anyone", "acme", "BENCHMARK"); err != nil {
		t.Fatalf("wildcard grant must pass: %v", err)
	}
	if err := a.Authorize(context.Background(), "anyone", "other", "BENCHMARK"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong tenant must be denied, got %v", err)
	}
}

func TestAuthorizeDeniesByDefault(t *testing.T) {
	a := NewPolicyAuthorizer(Policy{})
	err := a.Authorize(context.Background(), "analyst-1", "acme", "DRAFT")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("empty policy must deny everything, got %v", err)
	}
}

func TestAuthorizeEmptyGrantFieldsNeverMatch(t *testing.T) {
	a := NewPolicyAuthorizer(Policy{Grants: []Grant{
		{TenantID: "", UserID: "", Actions: []string{"DRAFT"}},
	}})
	err := a.Authorize(context.Background(), "", "", "DRAFT")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("empty patterns must not act as wildcards, got %v", err)
	}
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authz.yaml")
	raw := `grants:
  - tenant_id: acme
    user_id: analyst-1
    actions: [DRAFT, REVIEW, BENCHMARK]
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	a, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}
	if err := a.Authorize(context.Background(), "analyst-1", "acme", "REVIEW"); err != nil {
		t.Fatalf("loaded grant must pass: %v", err)
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
