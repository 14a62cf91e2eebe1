package interp

import (
	"io"
	"strconv"
	"strings"
	"time"

	"blackbox/pkg/devices"
	"blackbox/pkg/grid"
)

type builtinFunc = func(env *Environment, c *call, args []Value, line int) (Value, error)

func builtins() map[string]*Builtin {
	table := map[string]builtinFunc{
		"sleep":                builtinSleep,
		"millis":               builtinMillis,
		"random":               builtinRandom,
		"debug_print":          builtinPrint,
		"print":                builtinPrint,
		"bb_get_button":        builtinGetButton,
		"bb_matrix_set_pos":    builtinSetPos,
		"bb_matrix_get_pos":    builtinGetPos,
		"bb_matrix_toggle_pos": builtinTogglePos,
		"bb_matrix_all_on":     builtinAllOn,
		"bb_matrix_all_off":    builtinAllOff,
		"bb_matrix_set_arr":    builtinSetArr,
		"bb_matrix_get_arr":    builtinGetArr,
		"bb_tone":              builtinTone,
		"bb_tone_off":          builtinToneOff,
	}
	out := make(map[string]*Builtin, len(table))
	for name, fn := range table {
		out[name] = &Builtin{Name: name, fn: fn}
	}
	return out
}

func argc(name string, args []Value, n, line int) error {
	if len(args) != n {
		return runtimeErr(line, "%s expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func intArg(name string, args []Value, i, line int) (int64, error) {
	n, ok := toInt(args[i])
	if !ok {
		return 0, runtimeErr(line, "argument %d of %s must be an integer, got %s", i+1, name, typeName(args[i]))
	}
	return n, nil
}

// sleep parks the calling task. The statement budget restarts afterwards.
func builtinSleep(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("sleep", args, 1, line); err != nil {
		return nil, err
	}
	ms, err := intArg("sleep", args, 0, line)
	if err != nil {
		return nil, err
	}
	if c.th.sl == nil {
		return nil, runtimeErr(line, "sleep is not allowed here")
	}
	if ms < 0 {
		ms = 0
	}
	if err := c.th.sl.Sleep(time.Duration(ms) * time.Millisecond); err != nil {
		return nil, err
	}
	c.th.steps = 0
	return nil, nil
}

func builtinMillis(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("millis", args, 0, line); err != nil {
		return nil, err
	}
	return env.Millis(), nil
}

func builtinRandom(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("random", args, 0, line); err != nil {
		return nil, err
	}
	return int64(env.Rand.Intn(1 << 16)), nil
}

// builtinPrint writes a printf-style message to the console and returns the
// number of characters written.
func builtinPrint(env *Environment, c *call, args []Value, line int) (Value, error) {
	if len(args) == 0 {
		return nil, runtimeErr(line, "debug_print expects a format string")
	}
	format, ok := cString(args[0])
	if !ok {
		return nil, runtimeErr(line, "debug_print format must be a string, got %s", typeName(args[0]))
	}
	text, err := cFormat(format, args[1:], line)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(env.Console, text); err != nil {
		return nil, runtimeErr(line, "console: %v", err)
	}
	return int64(len(text)), nil
}

// cFormat expands %d %i %u %x %X %c %s and %%. Flags and widths are not
// supported.
func cFormat(format string, args []Value, line int) (string, error) {
	var sb strings.Builder
	next := 0
	arg := func() (Value, error) {
		if next >= len(args) {
			return nil, runtimeErr(line, "format %q needs more arguments", format)
		}
		next++
		return args[next-1], nil
	}
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' || i+1 == len(format) {
			sb.WriteByte(ch)
			continue
		}
		i++
		verb := format[i]
		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		v, err := arg()
		if err != nil {
			return "", err
		}
		switch verb {
		case 'd', 'i':
			if f, ok := v.(float64); ok {
				v = int64(f)
			}
			sb.WriteString(Format(v))
		case 'u':
			n, _ := toInt(v)
			sb.WriteString(strconv.FormatUint(uint64(uint32(n)), 10))
		case 'x', 'X':
			n, _ := toInt(v)
			s := strconv.FormatUint(uint64(uint32(n)), 16)
			if verb == 'X' {
				s = strings.ToUpper(s)
			}
			sb.WriteString(s)
		case 'c':
			n, _ := toInt(v)
			sb.WriteByte(byte(n))
		case 's':
			s, ok := cString(v)
			if !ok {
				s = Format(v)
			}
			sb.WriteString(s)
		default:
			return "", runtimeErr(line, "unsupported format verb %%%c", verb)
		}
	}
	return sb.String(), nil
}

func builtinGetButton(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_get_button", args, 1, line); err != nil {
		return nil, err
	}
	n, err := intArg("bb_get_button", args, 0, line)
	if err != nil {
		return nil, err
	}
	if n < 0 || n >= devices.NumButtons {
		return nil, runtimeErr(line, "no button %d", n)
	}
	return boolValue(env.Device.Buttons.Pressed(devices.Button(n))), nil
}

// posArgs reads the leading x, y arguments of the bb_matrix_*_pos family.
func posArgs(name string, args []Value, n, line int) (int, error) {
	if err := argc(name, args, n, line); err != nil {
		return 0, err
	}
	x, err := intArg(name, args, 0, line)
	if err != nil {
		return 0, err
	}
	y, err := intArg(name, args, 1, line)
	if err != nil {
		return 0, err
	}
	if !grid.InBounds(int(x), int(y)) {
		return 0, runtimeErr(line, "%s: position (%d, %d) out of range", name, x, y)
	}
	return grid.GetGridIndex(int(x), int(y), grid.Cols), nil
}

func builtinSetPos(env *Environment, c *call, args []Value, line int) (Value, error) {
	i, err := posArgs("bb_matrix_set_pos", args, 3, line)
	if err != nil {
		return nil, err
	}
	return nil, env.Device.Matrix.Set(i, truthy(args[2]))
}

func builtinGetPos(env *Environment, c *call, args []Value, line int) (Value, error) {
	i, err := posArgs("bb_matrix_get_pos", args, 2, line)
	if err != nil {
		return nil, err
	}
	on, err := env.Device.Matrix.IsOn(i)
	return boolValue(on), err
}

func builtinTogglePos(env *Environment, c *call, args []Value, line int) (Value, error) {
	i, err := posArgs("bb_matrix_toggle_pos", args, 2, line)
	if err != nil {
		return nil, err
	}
	return nil, env.Device.Matrix.Toggle(i)
}

func builtinAllOn(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_matrix_all_on", args, 0, line); err != nil {
		return nil, err
	}
	env.Device.Matrix.TurnAllOn()
	return nil, nil
}

func builtinAllOff(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_matrix_all_off", args, 0, line); err != nil {
		return nil, err
	}
	env.Device.Matrix.TurnAllOff()
	return nil, nil
}

// builtinSetArr loads the matrix from eight row bytes, bit 7 being column 0.
func builtinSetArr(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_matrix_set_arr", args, 1, line); err != nil {
		return nil, err
	}
	ns, err := intArray(args[0], line)
	if err != nil {
		return nil, err
	}
	if len(ns) < grid.Rows {
		return nil, runtimeErr(line, "bb_matrix_set_arr needs %d rows, got %d", grid.Rows, len(ns))
	}
	var rows [grid.Rows]uint8
	for i := range rows {
		rows[i] = uint8(ns[i])
	}
	env.Device.Matrix.SetRows(rows)
	return nil, nil
}

func builtinGetArr(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_matrix_get_arr", args, 1, line); err != nil {
		return nil, err
	}
	var arr *Array
	switch v := args[0].(type) {
	case *Array:
		arr = v
	case *Pointer:
		arr = v.Arr
	}
	if arr == nil || len(arr.Elems) < grid.Rows {
		return nil, runtimeErr(line, "bb_matrix_get_arr needs an array of %d rows", grid.Rows)
	}
	for i, b := range env.Device.Matrix.Rows() {
		if err := (elemPlace{env, arr, i, line}).set(int64(b)); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func builtinTone(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_tone", args, 1, line); err != nil {
		return nil, err
	}
	f, err := intArg("bb_tone", args, 0, line)
	if err != nil {
		return nil, err
	}
	env.Device.Piezo.Tone(int(f), 0)
	return nil, nil
}

func builtinToneOff(env *Environment, c *call, args []Value, line int) (Value, error) {
	if err := argc("bb_tone_off", args, 0, line); err != nil {
		return nil, err
	}
	env.Device.Piezo.NoTone()
	return nil, nil
}
