// Package compiler provides the Black Box C-subset front end: a character
// cursor scanner, a precedence-climbing parser producing a Program, and the
// structural validator run before a program is executed.
//
// Pipeline: C source → Parse → Program → Validate → Shape
package compiler
