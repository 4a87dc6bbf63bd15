package ocr

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"plate-api/api/internal/util"
)

// NoJSONError means no JSON object could be recovered from the reply at
// all. Raw keeps the original content for diagnostics.
type NoJSONError struct {
	Raw string
}

func (e *NoJSONError) Error() string {
	return "no JSON object found in extraction reply"
}

// First balanced brace pair with no nested braces. The plate object is
// flat, so this picks it out of any surrounding prose.
var embeddedObject = regexp.MustCompile(`\{[^{}]*\}`)

// ParsePlate turns the raw extraction reply into a PlateRecord. The
// strategies run in order, each is total, and the first one that yields
// an object wins:
//
//  1. parse the whole reply as JSON (code fences stripped first);
//  2. parse the first embedded {...} fragment when the model wrapped
//     the object in prose.
//
// Whichever strategy succeeds, missing or blank fields are filled with
// the Unreadable sentinel, so a returned record is always complete.
// Only when no object can be recovered does ParsePlate fail, with a
// *NoJSONError carrying the raw content.
func ParsePlate(content string) (PlateRecord, error) {
	strategies := []func(string) (map[string]any, bool){
		parseWhole,
		parseEmbedded,
	}
	for _, parse := range strategies {
		if fields, ok := parse(content); ok {
			return completeRecord(fields), nil
		}
	}
	return PlateRecord{}, &NoJSONError{Raw: content}
}

func parseWhole(s string) (map[string]any, bool) {
	s = util.StripCodeFences(s)
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	// "null" unmarshals into a nil map; that is not an object
	if m == nil {
		return nil, false
	}
	return m, true
}

func parseEmbedded(s string) (map[string]any, bool) {
	frag := embeddedObject.FindString(s)
	if frag == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(frag), &m); err != nil {
		return nil, false
	}
	return m, true
}

func completeRecord(fields map[string]any) PlateRecord {
	return PlateRecord{
		LeftNumber:  fieldOr(fields, "left_number"),
		MiddleText:  fieldOr(fields, "middle_text"),
		RightNumber: fieldOr(fields, "right_number"),
	}
}

func fieldOr(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return Unreadable
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return Unreadable
		}
		return t
	case float64:
		// the model sometimes returns the numeric parts unquoted
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return Unreadable
	}
}
