package rbac

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Actions recognised by the permission registry.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage"
)

// Subjects recognised by the permission registry.
const (
	SubjectUser       = "user"
	SubjectCourse     = "course"
	SubjectBatch      = "batch"
	SubjectStudent    = "student"
	SubjectAttendance = "attendance"
	SubjectFinance    = "finance"
	SubjectMarketing  = "marketing"
	SubjectPayroll    = "payroll"
	SubjectSettings   = "settings"
	SubjectSystem     = "system"
)

// subjectActions maps each subject to the actions that can be granted on
// it. Settings and system intentionally expose no create/delete: they are
// singletons managed as a whole.
var subjectActions = map[string][]string{
	SubjectUser:       {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage},
	SubjectCourse:     {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage},
	SubjectBatch:      {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage},
	SubjectStudent:    {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage},
	SubjectAttendance: {ActionRead, ActionCreate, ActionUpdate, ActionManage},
	SubjectFinance:    {ActionRead, ActionCreate, ActionUpdate, ActionManage},
	SubjectMarketing:  {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage},
	SubjectPayroll:    {ActionRead, ActionManage},
	SubjectSettings:   {ActionRead, ActionManage},
	SubjectSystem:     {ActionRead, ActionManage},
}

// subjectOrder keeps catalog listings stable across processes.
var subjectOrder = []string{
	SubjectUser,
	SubjectCourse,
	SubjectBatch,
	SubjectStudent,
	SubjectAttendance,
	SubjectFinance,
	SubjectMarketing,
	SubjectPayroll,
	SubjectSettings,
	SubjectSystem,
}

var (
	catalog   []Permission
	catalogID map[string]Permission
	titler    = cases.Title(language.English)
)

func init() {
	catalogID = make(map[string]Permission)
	for _, subject := range subjectOrder {
		for _, action := range subjectActions[subject] {
			p := Permission{
				ID:      PermissionID(action, subject),
				Action:  action,
				Subject: subject,
				Label:   titler.String(action) + " " + titler.String(subject),
			}
			catalog = append(catalog, p)
			catalogID[p.ID] = p
		}
	}
}

// PermissionID returns the stable identifier for an (action, subject) pair.
func PermissionID(action, subject string) string {
	return normalize(action) + ":" + normalize(subject)
}

// Catalog returns the full permission catalog in registry order.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether the (action, subject) pair is a registered capability.
func Known(action, subject string) bool {
	_, ok := catalogID[PermissionID(action, subject)]
	return ok
}

// Lookup resolves a permission ID against the registry.
func Lookup(id string) (Permission, bool) {
	p, ok := catalogID[strings.TrimSpace(strings.ToLower(id))]
	return p, ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
