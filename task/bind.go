package task

import "fmt"

// boundAttr records one attribute's resolved value for the later,
// callback-gated validation pass (spec §4.4 step 6b); populated during
// binding (step 4) but not validated until the engine runs beforeValidation.
type boundAttr struct {
	def     *AttributeDef
	value   any
	present bool
}

// bindAttributes runs spec §3's attribute invariant and §4.4 step 4 for
// every declared attribute of inst.Def, in declaration order, recording
// each result onto inst.bindings for step 6b. args is the caller-supplied
// argument bag for this execution (already merged into inst.Ctx by the
// caller per step 3). Failures resolving if/unless or a default are
// configuration errors and returned directly; a required attribute without a
// value and a value that cannot be coerced are instead recorded into
// inst.Errs so the engine can surface them as a single "Invalid" failure
// after all attributes bind.
func bindAttributes(inst *Instance, defs []*AttributeDef, args map[string]any) error {
	for _, def := range defs {
		if err := bindOne(inst, def, args); err != nil {
			return err
		}
	}
	return nil
}

func bindOne(inst *Instance, def *AttributeDef, args map[string]any) error {
	applies, err := gateApplies(inst, def)
	if err != nil {
		return fmt.Errorf("task: resolving if/unless for attribute %q: %w", def.Name, err)
	}
	if !applies {
		return nil
	}

	raw, present := resolveRaw(inst, def, args)

	if !present {
		raw, present, err = resolveDefault(inst, def)
		if err != nil {
			return fmt.Errorf("task: resolving default for attribute %q: %w", def.Name, err)
		}
	}

	var coerced any
	if present {
		coerced, present = coerce(raw, def.Types)
		if !present {
			inst.Errs.Add(def.Name, "could not be coerced to the declared type")
			return nil
		}
	}

	if def.Required && !present {
		inst.Errs.Add(def.Name, "is required")
		inst.bindings = append(inst.bindings, boundAttr{def: def, present: false})
		return nil
	}

	if present {
		inst.SetAttr(def.Name, coerced)
		inst.Ctx.Set(def.Name, coerced)

		if len(def.Nested) > 0 {
			if nestedArgs, ok := coerced.(map[string]any); ok {
				if err := bindAttributes(inst, def.Nested, nestedArgs); err != nil {
					return err
				}
			}
		}
	}

	inst.bindings = append(inst.bindings, boundAttr{def: def, value: coerced, present: present})
	return nil
}

// gateApplies resolves if/unless per spec §3 step 1: truthy if (or absent)
// AND falsy unless (or absent) ⇒ applies.
func gateApplies(inst *Instance, def *AttributeDef) (bool, error) {
	ifOK := true
	if def.IfFunc != nil {
		var err error
		ifOK, err = def.IfFunc(inst)
		if err != nil {
			return false, err
		}
	} else if def.If != "" {
		fn, ok := inst.Def.Methods[def.If]
		if !ok {
			return false, fmt.Errorf("no method %q registered for if", def.If)
		}
		v, err := fn(inst)
		if err != nil {
			return false, err
		}
		ifOK = truthy(v)
	}

	unlessOK := false
	if def.UnlessFunc != nil {
		var err error
		unlessOK, err = def.UnlessFunc(inst)
		if err != nil {
			return false, err
		}
	} else if def.Unless != "" {
		fn, ok := inst.Def.Methods[def.Unless]
		if !ok {
			return false, fmt.Errorf("no method %q registered for unless", def.Unless)
		}
		v, err := fn(inst)
		if err != nil {
			return false, err
		}
		unlessOK = truthy(v)
	}

	return ifOK && !unlessOK, nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case nil:
		return false
	default:
		return true
	}
}

// resolveRaw implements the "args > context" half of spec §4.4 step 4's
// priority order.
func resolveRaw(inst *Instance, def *AttributeDef, args map[string]any) (any, bool) {
	if v, ok := args[def.Name]; ok {
		return v, true
	}
	if v, ok := inst.Ctx.Get(def.Name); ok {
		return v, true
	}
	return nil, false
}

// resolveDefault implements the "source > default" half of spec §4.4 step 4.
func resolveDefault(inst *Instance, def *AttributeDef) (any, bool, error) {
	if def.SourceFunc != nil {
		v, err := def.SourceFunc(inst)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	if def.Source != "" {
		fn, ok := inst.Def.Methods[def.Source]
		if !ok {
			return nil, false, fmt.Errorf("no method %q registered for source", def.Source)
		}
		v, err := fn(inst)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	if def.DefaultFunc != nil {
		v, err := def.DefaultFunc(inst)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	if def.Default != nil {
		return def.Default, true, nil
	}
	return nil, false, nil
}

// coerce tries each named type in order, keeping the first success (spec
// §3: "type... first successful wins"). With no declared types the raw
// value passes through unchanged.
func coerce(raw any, types []string) (any, bool) {
	if len(types) == 0 {
		return raw, true
	}
	for _, t := range types {
		fn, ok := resolveCoercion(t)
		if !ok {
			continue
		}
		if v, ok := fn(raw); ok {
			return v, true
		}
	}
	return nil, false
}
