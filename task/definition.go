package task

// NewDefinition returns a Definition with its maps initialized, ready for
// attributes/callbacks/methods to be populated by the caller before first
// use. Definitions are built once per task type and shared by every
// Execute/ExecuteStrict call (spec §9: "definition structs constructed once
// per task type").
func NewDefinition(name string) *Definition {
	return &Definition{
		Name:      name,
		Callbacks: make(map[CallbackType][]Callback),
		Methods:   make(map[string]ValueFunc),
	}
}

// On registers cb for callback type t, appended after any previously
// registered local callback of the same type (spec §4.4: "task-declared
// callbacks for that type... declaration order").
func (d *Definition) On(t CallbackType, cb Callback) *Definition {
	d.Callbacks[t] = append(d.Callbacks[t], cb)
	return d
}

// OnFunc is the function-callback convenience form of On.
func (d *Definition) OnFunc(t CallbackType, fn CallbackFunc) *Definition {
	return d.On(t, CallbackFuncAdapter(fn))
}

// Use appends mw to the Definition-local middleware stack (spec §4.4 step
// 5: declaration order, applied after global middleware).
func (d *Definition) Use(mw Middleware) *Definition {
	d.Middlewares = append(d.Middlewares, mw)
	return d
}

// UseFunc is the function-middleware convenience form of Use.
func (d *Definition) UseFunc(fn MiddlewareFunc) *Definition {
	return d.Use(MiddlewareFuncAdapter(fn))
}

// Method registers a named resolver usable from AttributeDef.Source/If/Unless
// and from Settings.RetryJitter by name.
func (d *Definition) Method(name string, fn ValueFunc) *Definition {
	d.Methods[name] = fn
	return d
}
