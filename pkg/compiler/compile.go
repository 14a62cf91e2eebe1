package compiler

// Check parses and validates a program. Local headers are resolved with
// load, which may be nil when the program includes none.
func Check(src string, load Loader) (*Program, *Shape, error) {
	prog, err := ParseWith(src, load)
	if err != nil {
		return nil, nil, err
	}
	shape, err := Validate(prog)
	if err != nil {
		return prog, nil, err
	}
	return prog, shape, nil
}
