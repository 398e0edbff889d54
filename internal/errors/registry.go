package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// Registered codes.
const (
	CodeStaleHandle     = "K001"
	CodeInvalidSpring   = "K002"
	CodeEmptyKeyframes  = "K003"
	CodeInvalidKeyframe = "K004"
	CodeFlushLimit      = "K005"
	CodeTickInFlight    = "K006"
	CodeShutdown        = "K007"
	CodeCycle           = "K008"
	CodeEffectPanic     = "K009"
	CodeInvalidConfig   = "K010"
	CodeUnknownName     = "K011"
	CodeInvalidTimeline = "K012"
	CodeTypeMismatch    = "K013"
	CodeStorage         = "K020"
	CodeNotFound        = "K021"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Handle Errors (K001-K009)
	// ============================================

	CodeStaleHandle: {
		Category: CategoryHandle,
		Message:  "Stale handle",
		Detail:   "The id refers to state that was disposed or never existed. Widgets must not keep handles past unmount.",
	},
	CodeInvalidSpring: {
		Category: CategoryConfig,
		Message:  "Invalid spring configuration",
		Detail:   "Stiffness and mass must be finite and positive, damping finite and non-negative.",
	},
	CodeEmptyKeyframes: {
		Category: CategoryConfig,
		Message:  "Keyframe sequence is empty",
		Detail:   "A keyframe animation needs at least one keyframe.",
	},
	CodeInvalidKeyframe: {
		Category: CategoryConfig,
		Message:  "Invalid keyframe",
		Detail:   "Keyframe times must lie in [0,1] and be non-decreasing; values must be finite.",
	},
	CodeFlushLimit: {
		Category: CategoryScheduler,
		Message:  "Effect flush exceeded its pass limit",
		Detail:   "Effects kept re-marking each other dirty. This usually means two effects write signals the other one reads.",
	},
	CodeTickInFlight: {
		Category: CategoryScheduler,
		Message:  "Tick already in flight",
		Detail:   "Only one flush/step pass may run at a time.",
	},
	CodeShutdown: {
		Category: CategoryRuntime,
		Message:  "Runtime is shut down",
		Detail:   "The runtime was shut down; create a new one to continue.",
	},
	CodeCycle: {
		Category: CategoryScheduler,
		Message:  "Circular dependency detected",
		Detail:   "A derived value read itself while computing.",
	},
	CodeEffectPanic: {
		Category: CategoryRuntime,
		Message:  "Callback panicked",
		Detail:   "An effect or derived computation panicked. The panic was recovered.",
	},

	// ============================================
	// Configuration Errors (K010-K019)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	CodeUnknownName: {
		Category: CategoryConfig,
		Message:  "Unknown state or event name",
		Detail:   "Machine definitions may only reference states and events they declare.",
	},
	CodeInvalidTimeline: {
		Category: CategoryConfig,
		Message:  "Invalid timeline entry",
		Detail:   "A keyframe animation can belong to at most one timeline.",
	},

	CodeTypeMismatch: {
		Category: CategoryHandle,
		Message:  "Value type mismatch",
		Detail:   "A signal was read or written with a type other than the one it was created with.",
	},

	// ============================================
	// Storage Errors (K020-K029)
	// ============================================

	CodeStorage: {
		Category: CategoryStorage,
		Message:  "Recording storage failed",
	},
	CodeNotFound: {
		Category: CategoryStorage,
		Message:  "Recording not found",
	},
}

// GetTemplate returns the template for a code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
