package auth

import "fmt"

type Action string

const (
	ActionViewSummary Action = "view_summary"
	ActionDeleteEntry Action = "delete_entry"
	ActionExport      Action = "export"
)

type View string

const (
	ViewDashboard View = "dashboard"
	ViewSummary   View = "summary"
)

// Authorize allows the privileged actions to admins only.
func Authorize(p Principal, action Action) error {
	switch action {
	case ActionViewSummary, ActionDeleteEntry, ActionExport:
		if p.IsAdmin() {
			return nil
		}
		return fmt.Errorf("%w: %s requires admin", ErrForbidden, action)
	default:
		return fmt.Errorf("%w: unknown action %s", ErrForbidden, action)
	}
}

// ResolveView returns the view to show; non-admins always land on the dashboard.
func ResolveView(p Principal, requested View) View {
	if requested == ViewSummary && p.IsAdmin() {
		return ViewSummary
	}
	return ViewDashboard
}
