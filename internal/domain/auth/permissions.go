package auth

const (
	PermEvaluationsRead    = "evaluations.read"
	PermEvaluationsWrite   = "evaluations.write"
	PermEvaluationsSubmit  = "evaluations.submit"
	PermEvaluationsCheck   = "evaluations.check"
	PermEvaluationsApprove = "evaluations.approve"
	PermHistoryRead        = "history.read"
	PermReportsRead        = "reports.read"
	PermNotificationsRead  = "notifications.read"
	PermSystemAdmin        = "admin.system"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsSubmit,
		PermHistoryRead,
		PermReportsRead,
		PermNotificationsRead,
	},
	RoleChecker: {
		PermEvaluationsRead,
		PermEvaluationsCheck,
		PermHistoryRead,
		PermReportsRead,
		PermNotificationsRead,
	},
	RoleApprover: {
		PermEvaluationsRead,
		PermEvaluationsApprove,
		PermHistoryRead,
		PermReportsRead,
		PermNotificationsRead,
	},
	RoleAdmin: {
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsSubmit,
		PermEvaluationsCheck,
		PermEvaluationsApprove,
		PermHistoryRead,
		PermReportsRead,
		PermNotificationsRead,
		PermSystemAdmin,
	},
}

// HasPermission checks the static role grants. Roles are a fixed enum in
// this service, so there is no per-tenant permission table to consult.
func HasPermission(role, permission string) bool {
	for _, granted := range RolePermissions[role] {
		if granted == permission {
			return true
		}
	}
	return false
}
