package task

import (
	"runtime/debug"
	"strings"
	"sync"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/registry"
)

// The following are the process-wide registries named in spec §6
// ("configure(fn)... Each registry supports register, deregister,
// get/registry, clear"). They are package-level so any Definition can be
// declared without threading a registry handle through every call site; the
// config package's Configure exposes them to application startup code.
var (
	// Coercions holds named custom value coercions. They take priority over
	// the built-in table in coerce.go (builtinCoercions): resolveCoercion
	// tries this registry first, then the built-in table.
	Coercions = registry.New[Coercion]()

	// Middlewares holds globally applied middleware, run outermost-first
	// ahead of any Definition-local middleware (spec §4.4 step 5).
	Middlewares = registry.New[Middleware]()

	// Validators holds named custom validators, referenced by an
	// AttributeDef's CustomValidators (spec §6 configuration bag's
	// validators).
	Validators = registry.New[ValidatorFunc]()

	// callbacksByType holds globally applied lifecycle callbacks, keyed by
	// the CallbackType string, each entry a list in registration order;
	// GlobalCallbacks(t) returns the list for a given CallbackType (spec
	// §4.4: "all globally registered callbacks for that type first").
	callbacksByType = registry.New[[]Callback]()
)

// RegisterGlobalCallback appends cb to the global callback list for t.
func RegisterGlobalCallback(t CallbackType, cb Callback) {
	existing, _ := callbacksByType.Get(string(t))
	callbacksByType.Register(string(t), append(existing, cb))
}

// GlobalCallbacks returns the globally registered callbacks for t, in
// registration order.
func GlobalCallbacks(t CallbackType) []Callback {
	cbs, _ := callbacksByType.Get(string(t))
	return cbs
}

// ClearGlobalCallbacks removes every global callback registration. Mainly
// useful for test isolation.
func ClearGlobalCallbacks() { callbacksByType.Clear() }

// DefaultTaskBreakpoints and DefaultRollbackOn are the process-wide
// fallbacks consulted when a Definition's own Settings leave the
// corresponding field empty (spec §6 configuration bag's taskBreakpoints
// and rollbackOn). Set via config.Configure.
var (
	DefaultTaskBreakpoints []chain.Status
	DefaultRollbackOn      []chain.Status
)

// Backtrace, BacktraceCleaner and ExceptionHandler back the process-wide
// "unexpected exception" reporting hooks of spec §6's configuration bag.
// They are consulted by reportException below, set by config.Configure.
var (
	exceptionHooksMu sync.RWMutex
	backtraceEnabled bool
	backtraceCleaner func([]string) []string
	exceptionHandler func(err error, backtrace []string)
)

// SetExceptionHooks installs the process-wide exception-reporting hooks.
// Called by config.Configure; not meant to be called directly by task
// definitions.
func SetExceptionHooks(enabled bool, cleaner func([]string) []string, handler func(error, []string)) {
	exceptionHooksMu.Lock()
	defer exceptionHooksMu.Unlock()
	backtraceEnabled = enabled
	backtraceCleaner = cleaner
	exceptionHandler = handler
}

// reportException runs the configured backtrace/exceptionHandler hooks for
// an "unexpected exception" (spec §7 item 3) on its way to becoming a
// failed Result. It never alters the Result; it is a reporting side effect
// only, the same role the teacher's error-tracking callbacks play outside
// the core engine.
func reportException(err error) {
	exceptionHooksMu.RLock()
	enabled, cleaner, handler := backtraceEnabled, backtraceCleaner, exceptionHandler
	exceptionHooksMu.RUnlock()

	if !enabled && handler == nil {
		return
	}

	var frames []string
	if enabled {
		frames = strings.Split(string(debug.Stack()), "\n")
		if cleaner != nil {
			frames = cleaner(frames)
		}
	}
	if handler != nil {
		handler(err, frames)
	}
}

// resolveCoercion looks up a coercion by name, preferring a registered
// override over the built-in table.
func resolveCoercion(name string) (Coercion, bool) {
	if c, ok := Coercions.Get(name); ok {
		return c, true
	}
	c, ok := builtinCoercions[name]
	return c, ok
}
