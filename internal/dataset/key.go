package dataset

import "github.com/ohler55/ojg/oj"

// keyOptions sorts object keys so two equal objects always serialize to
// the same string.
var keyOptions = oj.Options{Sort: true}

// pivotKey canonicalizes a join key value into a string usable as a map
// key. JSON encoding keeps 1 and "1" distinct and makes composite keys
// (arrays, objects) joinable without defining equality ourselves.
func pivotKey(v any) string {
	return oj.JSON(v, &keyOptions)
}
