package types

// GenerationSettings are the user-configurable knobs forwarded to the chat
// backend with every stream request.
type GenerationSettings struct {
	AutoAcceptedPlan              bool           `json:"auto_accepted_plan"`
	EnableDeepThinking            bool           `json:"enable_deep_thinking"`
	EnableBackgroundInvestigation bool           `json:"enable_background_investigation"`
	MaxPlanIterations             int            `json:"max_plan_iterations"`
	MaxStepNum                    int            `json:"max_step_num"`
	MaxSearchResults              int            `json:"max_search_results"`
	ReportStyle                   string         `json:"report_style,omitempty"`
	MCPSettings                   map[string]any `json:"mcp_settings,omitempty"`
	Model                         string         `json:"model,omitempty"`
}

// SendOptions accompany one Driver.SendMessage call.
type SendOptions struct {
	// InterruptFeedback is the option value chosen in response to a prior
	// interrupt, empty otherwise.
	InterruptFeedback string
	// Resources are user-supplied attachments for this turn.
	Resources []Resource
	// Settings overrides the driver's default generation settings when
	// non-nil.
	Settings *GenerationSettings
}
