package auth

import "testing"

func TestRolePermissionGates(t *testing.T) {
	cases := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleEmployee, PermEvaluationsSubmit, true},
		{RoleEmployee, PermEvaluationsCheck, false},
		{RoleEmployee, PermEvaluationsApprove, false},
		{RoleChecker, PermEvaluationsCheck, true},
		{RoleChecker, PermEvaluationsWrite, false},
		{RoleApprover, PermEvaluationsApprove, true},
		{RoleApprover, PermEvaluationsCheck, false},
		{RoleAdmin, PermSystemAdmin, true},
		{RoleAdmin, PermEvaluationsApprove, true},
		{"unknown", PermEvaluationsRead, false},
	}
	for _, tc := range cases {
		if got := HasPermission(tc.role, tc.permission); got != tc.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.permission, got, tc.want)
		}
	}
}

func TestEveryRoleCanReadNotifications(t *testing.T) {
	for _, role := range []string{RoleEmployee, RoleChecker, RoleApprover, RoleAdmin} {
		if !HasPermission(role, PermNotificationsRead) {
			t.Errorf("role %s should read notifications", role)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleEmployee, RoleChecker, RoleApprover, RoleAdmin} {
		if !ValidRole(role) {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if ValidRole("manager") {
		t.Error("manager is not a role in this service")
	}
}
