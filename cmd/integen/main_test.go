package main

import "testing"

func TestEchoDeltaExtendsPrefix(t *testing.T) {
	out, next := echoDelta("", "Hel")
	if out != "Hel" || next != "Hel" {
		t.Fatalf("out=%q next=%q", out, next)
	}
	out, next = echoDelta("Hel", "Hello there")
	if out != "lo there" || next != "Hello there" {
		t.Fatalf("out=%q next=%q", out, next)
	}
}

func TestEchoDeltaNoRepeat(t *testing.T) {
	out, next := echoDelta("Hello", "Hello")
	if out != "" || next != "Hello" {
		t.Fatalf("out=%q next=%q", out, next)
	}
}

func TestEchoDeltaPrintsReplacement(t *testing.T) {
	// Finalize can swap a long partial answer for a shorter error line; the
	// replacement must still reach the user.
	partial := "The answer is forty-two because"
	errLine := "Error: connection reset. Please check your connection or API key."
	out, next := echoDelta(partial, errLine)
	if out != "\n"+errLine {
		t.Fatalf("replacement not printed: out=%q", out)
	}
	if next != errLine {
		t.Fatalf("next=%q", next)
	}
}
