package model

// RouteDescriptor is the auth metadata of one route record.
type RouteDescriptor struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	RequiresAuth bool   `json:"requires_auth"`
	PublicOnly   bool   `json:"public_only"`
}
