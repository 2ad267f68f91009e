package frontend

type reservedItem struct {
	val string
	typ itemType
}

// rw contains the set of all reserved keywords of the source language.
// The index into the first dimension is the length of the word minus one.
// The second dimension is the slice of all words of that length.
// Indexing by length and searching should be faster than using a hash table.
//
// Handler-shaped names (edge, sticky, delay, timer, whenChanged, arm, always)
// and the well-known identifiers Math/inav are deliberately NOT reserved
// here: they are call-shaped surface forms, not grammar keywords, so the
// parser recognizes them by value in call/member position and they remain
// usable as ordinary identifiers everywhere else.
var rw = [...][]reservedItem{
	// One-grams
	{},
	// Two-grams
	{
		{val: "if", typ: IF},
		{val: "on", typ: ON},
	},
	// Three-grams
	{
		{val: "let", typ: LET},
		{val: "var", typ: VAR},
	},
	// Four-grams
	{
		{val: "else", typ: ELSE},
		{val: "true", typ: TRUE},
	},
	// Five-grams
	{
		{val: "const", typ: CONST},
		{val: "false", typ: FALSE},
	},
}

// isKeyword returns true if the string s is a reserved keyword.
// On the return of true the itemType of the keyword is returned.
// On the return of false the itemType is IDENTIFIER.
func isKeyword(s string) (bool, itemType) {
	if len(s) == 0 || len(s) > len(rw) {
		return false, IDENTIFIER
	}
	for _, e := range rw[len(s)-1] {
		if e.val == s {
			return true, e.typ
		}
	}
	return false, IDENTIFIER
}
