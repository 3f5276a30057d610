package dto

// ContextResponse is the merged context of one provider group.
type ContextResponse struct {
	Group   string         `json:"group"`
	Context map[string]any `json:"context"`
}

// TouchRequest lists static providers to recompute. An empty list
// recomputes all of them.
type TouchRequest struct {
	IDs []string `json:"ids" validate:"omitempty,max=32,dive,notempty,provider_id"`
}

// TouchResponse reports, per requested id, whether a static provider was
// recomputed. All is set when every static provider was recomputed.
type TouchResponse struct {
	Touched map[string]bool `json:"touched,omitempty"`
	All     bool            `json:"all,omitempty"`
}

// EventRequest logs a message through the facade and optionally forwards
// it as a notification.
type EventRequest struct {
	Level   string         `json:"level"   validate:"required,level"`
	Message string         `json:"message" validate:"notempty,max=4096"`
	Context map[string]any `json:"context"`
	Notify  bool           `json:"notify"`
	Only    []string       `json:"only"    validate:"omitempty,dive,channel"`
	Except  []string       `json:"except"  validate:"omitempty,dive,channel"`
}

// EventResponse acknowledges a logged event.
type EventResponse struct {
	Logged   bool `json:"logged"`
	Notified bool `json:"notified"`
}
