package authz

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// Grant allows a set of actions to one user in one tenant. "*" matches
// any value.
type Grant struct {
	TenantID string   `yaml:"tenant_id"`
	UserID   string   `yaml:"user_id"`
	Actions  []string `yaml:"actions"`
}

type Policy struct {
	Grants []Grant `yaml:"grants"`
}

// PolicyAuthorizer is a file-backed authorizer. A request not covered by
// any grant is denied; there is no default-allow mode.
type PolicyAuthorizer struct {
	policy Policy
}

func LoadPolicy(path string) (*PolicyAuthorizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var policy Policy
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return NewPolicyAuthorizer(policy), nil
}

func NewPolicyAuthorizer(policy Policy) *PolicyAuthorizer {
	return &PolicyAuthorizer{policy: policy}
}

func (a *PolicyAuthorizer) Authorize(_ context.Context, userID, tenantID, action string) error {
	for _, grant := range a.policy.Grants {
		if !matches(grant.TenantID, tenantID) || !matches(grant.UserID, userID) {
			continue
		}
		for _, allowed := range grant.Actions {
			if matches(allowed, action) {
				return nil
			}
		}
	}
	return domain.WrapError(domain.ErrUnauthorized, "authorize",
		fmt.Errorf("user %s in tenant %s may not %s", userID, tenantID, action))
}

func matches(pattern, value string) bool {
	return pattern == "*" || (pattern != "" && pattern == value)
}
