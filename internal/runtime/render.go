package runtime

import (
	"fmt"
	"regexp"
)

// Interpolator fills {{name}} placeholders in a prompt template with slot
// values. Implementations must leave unknown placeholders untouched: a
// missing slot is a recoverable degraded case, not an error.
type Interpolator func(template string, slots map[string]any) string

var slotPlaceholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// InterpolateSlots is the default Interpolator. Placeholders naming a filled
// slot are replaced with the value's string form; everything else stays as
// literal template text.
func InterpolateSlots(template string, slots map[string]any) string {
	return slotPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		name := slotPlaceholder.FindStringSubmatch(match)[1]
		value, ok := slots[name]
		if !ok || value == nil {
			return match
		}
		return fmt.Sprintf("%v", value)
	})
}
