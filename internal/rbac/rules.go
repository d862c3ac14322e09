package rbac

// Default policy for the platform's four roles. Parents get read-only
// visibility into attempts and submissions; grading stays with
// teachers.
var RolePermissions = map[string][]string{
	"student": {
		"exercise:view",
		"assessment:view",
		"attempt:start",
		"attempt:answer",
		"attempt:complete",
		"attempt:view-own",
		"practice:play",
		"submission:view-own",
		"user:change_password",
	},
	"parent": {
		"exercise:view",
		"assessment:view",
		"attempt:view-own",
		"submission:view-own",
		"user:change_password",
	},
	"teacher": {
		"exercise:*",
		"assessment:*",
		"attempt:view-all",
		"attempt:grade",
		"asset:upload",
		"users:bulk_upsert",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*",
	},
}
