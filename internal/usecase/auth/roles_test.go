package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestResolveRolesChain(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "a@x.com", "longenough1")

	roleA := env.roles.addRole("admin", nil)
	roleB := env.roles.addRole("manager", &roleA)
	roleC := env.roles.addRole("operator", &roleB)
	env.roles.assign(user.ID, roleC)

	names, err := env.service.ResolveRoles(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}

	want := []string{"operator", "manager", "admin"}
	if len(names) != len(want) {
		t.Fatalf("expected roles %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, names)
		}
	}
}

func TestResolveRolesNoAssignments(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "a@x.com", "longenough1")

	names, err := env.service.ResolveRoles(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty role set, got %v", names)
	}
}

func TestResolveRolesSharedAncestorOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "a@x.com", "longenough1")

	root := env.roles.addRole("staff", nil)
	left := env.roles.addRole("support", &root)
	right := env.roles.addRole("billing", &root)
	env.roles.assign(user.ID, left, right)

	names, err := env.service.ResolveRoles(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}

	want := []string{"support", "staff", "billing"}
	if len(names) != len(want) {
		t.Fatalf("expected roles %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, names)
		}
	}
}

func TestResolveRolesCycleTerminates(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "a@x.com", "longenough1")

	// Corrupt graph: a -> b -> a. The walk must still terminate and report
	// each role once.
	roleA := env.roles.addRole("alpha", nil)
	roleB := env.roles.addRole("beta", &roleA)
	env.roles.setParent(roleA, roleB)
	env.roles.assign(user.ID, roleA)

	names, err := env.service.ResolveRoles(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}

	seen := make(map[string]int)
	for _, name := range names {
		seen[name]++
	}
	if seen["alpha"] != 1 || seen["beta"] != 1 {
		t.Fatalf("expected alpha and beta exactly once, got %v", names)
	}
}

func TestResolveRolesDanglingParent(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "a@x.com", "longenough1")

	missing := uuid.New()
	role := env.roles.addRole("orphaned", &missing)
	env.roles.assign(user.ID, role)

	names, err := env.service.ResolveRoles(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if len(names) != 1 || names[0] != "orphaned" {
		t.Fatalf("expected only the orphaned role, got %v", names)
	}
}
