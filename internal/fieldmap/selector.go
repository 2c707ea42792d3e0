package fieldmap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/autoapply/internal/browser"
)

var cssIdent = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

// BuildSelector returns the most stable CSS selector the element's
// attributes allow: id, test-automation attributes, name, placeholder,
// aria-label, classes, then the bare tag.
func BuildSelector(info browser.ElementInfo) string {
	tag := info.Tag
	if tag == "" {
		tag = "*"
	}

	switch {
	case info.ID != "":
		if cssIdent.MatchString(info.ID) {
			return "#" + info.ID
		}
		return attrSelector("", "id", info.ID)
	case info.DataAutomationID != "":
		return attrSelector("", "data-automation-id", info.DataAutomationID)
	case info.DataTestID != "":
		return attrSelector("", "data-testid", info.DataTestID)
	case info.DataQA != "":
		return attrSelector("", "data-qa", info.DataQA)
	case info.DataField != "":
		return attrSelector("", "data-field", info.DataField)
	case info.Name != "":
		return attrSelector(tag, "name", info.Name)
	case info.Placeholder != "":
		return attrSelector(tag, "placeholder", info.Placeholder)
	case info.AriaLabel != "":
		return attrSelector(tag, "aria-label", info.AriaLabel)
	}

	var classes []string
	for _, c := range info.Classes {
		if cssIdent.MatchString(c) {
			classes = append(classes, c)
		}
	}
	if len(classes) > 0 {
		return tag + "." + strings.Join(classes, ".")
	}
	return tag
}

func attrSelector(tag, name, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf(`%s[%s="%s"]`, tag, name, escaped)
}
