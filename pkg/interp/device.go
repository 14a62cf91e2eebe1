package interp

import (
	"time"

	"blackbox/pkg/devices"
	"blackbox/pkg/grid"
)

var deviceMethods = map[string][]string{
	"BlackBox": {"sleep"},
	"Matrix":   {"pixel", "pixel_xy", "row", "slice", "turn_all_on", "turn_all_off", "set_from_bit_array", "set_from_integers"},
	"Pixel":    {"is_on", "is_off", "turn_on", "turn_off", "toggle", "set_from_integer"},
	"Slice":    {"pixel", "slice", "turn_all_on", "turn_all_off", "set_from_integer", "set_from_bit_array"},
	"Piezo":    {"tone", "no_tone"},
}

func isMethod(recv Value, name string) bool {
	for _, m := range deviceMethods[typeName(recv)] {
		if m == name {
			return true
		}
	}
	return false
}

// deviceMember reads a field of a device object or binds one of its methods.
func deviceMember(recv Value, name string, line int) (Value, error) {
	if isMethod(recv, name) {
		return &Method{Recv: recv, Name: name}, nil
	}
	switch r := recv.(type) {
	case *devices.BlackBox:
		switch name {
		case "matrix":
			return r.Matrix, nil
		case "piezo":
			return r.Piezo, nil
		}
		if slot, ok := devices.SlotByName(name); ok {
			if cb := r.Callback(slot); cb != nil {
				return cb, nil
			}
			return nil, nil
		}
	case *devices.Matrix:
		if name == "length" {
			return int64(grid.Size), nil
		}
	case devices.Pixel:
		switch name {
		case "value":
			return boolValue(r.IsOn()), nil
		case "index":
			return int64(r.Index()), nil
		}
	case devices.Slice:
		switch name {
		case "length":
			return int64(r.Length()), nil
		case "start":
			return int64(r.Start()), nil
		}
	case *devices.Piezo:
		if name == "frequency" {
			return int64(r.Frequency()), nil
		}
	default:
		return nil, runtimeErr(line, "%s has no members", typeName(recv))
	}
	return nil, runtimeErr(line, "%s has no member %s", typeName(recv), name)
}

// setDeviceMember assigns the writable device members: callback slots and
// pixel values.
func setDeviceMember(recv Value, name string, v Value, line int) error {
	switch r := recv.(type) {
	case *devices.BlackBox:
		slot, ok := devices.SlotByName(name)
		if !ok {
			break
		}
		switch fn := v.(type) {
		case *Function:
			r.SetCallback(slot, fn)
			return nil
		case nil, int64:
			if n, _ := toInt(fn); n == 0 {
				r.SetCallback(slot, nil)
				return nil
			}
		}
		return runtimeErr(line, "%s must be a function, got %s", name, typeName(v))
	case devices.Pixel:
		if name == "value" {
			n, ok := toInt(v)
			if !ok {
				return runtimeErr(line, "pixel value must be an integer, got %s", typeName(v))
			}
			r.SetFromInteger(n)
			return nil
		}
	}
	return runtimeErr(line, "cannot assign to %s.%s", typeName(recv), name)
}

func wantArgs(m *Method, args []Value, n, line int) error {
	if len(args) != n {
		return runtimeErr(line, "%s expects %d arguments, got %d", m, n, len(args))
	}
	return nil
}

// intArgs converts every argument to an int.
func intArgs(m *Method, args []Value, line int) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, runtimeErr(line, "argument %d of %s must be an integer, got %s", i+1, m, typeName(a))
		}
		out[i] = int(n)
	}
	return out, nil
}

func bitArray(v Value, line int) ([]bool, error) {
	arr, ok := v.(*Array)
	if !ok {
		return nil, runtimeErr(line, "expected an array, got %s", typeName(v))
	}
	bits := make([]bool, len(arr.Elems))
	for i, e := range arr.Elems {
		bits[i] = truthy(e)
	}
	return bits, nil
}

func intArray(v Value, line int) ([]int64, error) {
	arr, ok := v.(*Array)
	if !ok {
		return nil, runtimeErr(line, "expected an array, got %s", typeName(v))
	}
	out := make([]int64, len(arr.Elems))
	for i, e := range arr.Elems {
		n, ok := toInt(e)
		if !ok {
			return nil, runtimeErr(line, "element %d must be an integer, got %s", i, typeName(e))
		}
		out[i] = n
	}
	return out, nil
}

// deviceErr turns a device range error into a runtime error at line.
func deviceErr(v Value, err error, line int) (Value, error) {
	if err != nil {
		return nil, runtimeErr(line, "%v", err)
	}
	return v, nil
}

func callMethod(env *Environment, c *call, m *Method, args []Value, line int) (Value, error) {
	switch r := m.Recv.(type) {
	case *devices.BlackBox:
		if m.Name == "sleep" {
			return builtinSleep(env, c, args, line)
		}
	case *devices.Matrix:
		return matrixMethod(r, m, args, line)
	case devices.Pixel:
		return pixelMethod(r, m, args, line)
	case devices.Slice:
		return sliceMethod(r, m, args, line)
	case *devices.Piezo:
		switch m.Name {
		case "tone":
			if len(args) != 1 && len(args) != 2 {
				return nil, runtimeErr(line, "%s expects 1 or 2 arguments, got %d", m, len(args))
			}
			ns, err := intArgs(m, args, line)
			if err != nil {
				return nil, err
			}
			var d time.Duration
			if len(ns) == 2 {
				d = time.Duration(ns[1]) * time.Millisecond
			}
			r.Tone(ns[0], d)
			return nil, nil
		case "no_tone":
			if err := wantArgs(m, args, 0, line); err != nil {
				return nil, err
			}
			r.NoTone()
			return nil, nil
		}
	}
	return nil, runtimeErr(line, "unknown method %s", m)
}

func matrixMethod(r *devices.Matrix, m *Method, args []Value, line int) (Value, error) {
	arity := map[string]int{
		"pixel": 1, "pixel_xy": 2, "row": 1, "slice": 2,
		"turn_all_on": 0, "turn_all_off": 0, "set_from_bit_array": 1, "set_from_integers": 1,
	}
	if err := wantArgs(m, args, arity[m.Name], line); err != nil {
		return nil, err
	}
	switch m.Name {
	case "set_from_bit_array":
		bits, err := bitArray(args[0], line)
		if err != nil {
			return nil, err
		}
		return deviceErr(nil, r.SetFromBits(bits), line)
	case "set_from_integers":
		ns, err := intArray(args[0], line)
		if err != nil {
			return nil, err
		}
		return deviceErr(nil, r.SetFromIntegers(ns), line)
	case "turn_all_on":
		r.TurnAllOn()
		return nil, nil
	case "turn_all_off":
		r.TurnAllOff()
		return nil, nil
	}
	ns, err := intArgs(m, args, line)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "pixel":
		px, err := r.Pixel(ns[0])
		return deviceErr(px, err, line)
	case "pixel_xy":
		px, err := r.PixelXY(ns[0], ns[1])
		return deviceErr(px, err, line)
	case "row":
		s, err := r.Row(ns[0])
		return deviceErr(s, err, line)
	}
	s, err := r.Slice(ns[0], ns[1])
	return deviceErr(s, err, line)
}

func pixelMethod(r devices.Pixel, m *Method, args []Value, line int) (Value, error) {
	if m.Name == "set_from_integer" {
		if err := wantArgs(m, args, 1, line); err != nil {
			return nil, err
		}
		ns, err := intArgs(m, args, line)
		if err != nil {
			return nil, err
		}
		r.SetFromInteger(int64(ns[0]))
		return nil, nil
	}
	if err := wantArgs(m, args, 0, line); err != nil {
		return nil, err
	}
	switch m.Name {
	case "is_on":
		return boolValue(r.IsOn()), nil
	case "is_off":
		return boolValue(r.IsOff()), nil
	case "turn_on":
		r.TurnOn()
	case "turn_off":
		r.TurnOff()
	case "toggle":
		r.Toggle()
	}
	return nil, nil
}

func sliceMethod(r devices.Slice, m *Method, args []Value, line int) (Value, error) {
	switch m.Name {
	case "turn_all_on", "turn_all_off":
		if err := wantArgs(m, args, 0, line); err != nil {
			return nil, err
		}
		if m.Name == "turn_all_on" {
			r.TurnAllOn()
		} else {
			r.TurnAllOff()
		}
		return nil, nil
	case "set_from_bit_array":
		if err := wantArgs(m, args, 1, line); err != nil {
			return nil, err
		}
		bits, err := bitArray(args[0], line)
		if err != nil {
			return nil, err
		}
		r.SetFromBits(bits)
		return nil, nil
	case "set_from_integer":
		if err := wantArgs(m, args, 1, line); err != nil {
			return nil, err
		}
		n, ok := toInt(args[0])
		if !ok {
			return nil, runtimeErr(line, "argument 1 of %s must be an integer, got %s", m, typeName(args[0]))
		}
		r.SetFromInteger(n)
		return nil, nil
	}
	n := 1
	if m.Name == "slice" {
		n = 2
	}
	if err := wantArgs(m, args, n, line); err != nil {
		return nil, err
	}
	ns, err := intArgs(m, args, line)
	if err != nil {
		return nil, err
	}
	if m.Name == "pixel" {
		px, err := r.Pixel(ns[0])
		return deviceErr(px, err, line)
	}
	s, err := r.Slice(ns[0], ns[1])
	return deviceErr(s, err, line)
}
