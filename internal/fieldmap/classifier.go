// Package fieldmap discovers form fields on a page, classifies them, scores
// the classification and fills them from a user profile.
package fieldmap

import (
	"regexp"
	"strings"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/types"
)

type fieldPattern struct {
	fieldType types.FieldType
	patterns  []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// fieldPatterns is evaluated in order; the first field type with any matching
// pattern wins. github sits ahead of website so GitHub fields get the GitHub URL.
var fieldPatterns = []fieldPattern{
	{types.FieldFirstName, compile(`first\s*name`, `fname`, `first-name`, `given\s*name`, `legal\s*first`, `preferred\s*first`, `^first$`, `first_name`)},
	{types.FieldLastName, compile(`last\s*name`, `lname`, `last-name`, `surname`, `family\s*name`, `legal\s*last`, `preferred\s*last`, `^last$`, `last_name`)},
	{types.FieldEmail, compile(`e-?mail`, `email\s*address`, `contact\s*email`, `correo`)},
	{types.FieldPhone, compile(`phone`, `mobile`, `cell`, `telephone`, `contact\s*number`)},
	{types.FieldResume, compile(`resume`, `cv`, `curriculum\s*vitae`, `upload\s*cv`, `file.*resume`)},
	{types.FieldCoverLetter, compile(`cover\s*letter`, `coverletter`, `cover\s*note`, `message\s*to\s*hiring`, `introduction`, `cover`, `letter.*interest`)},
	{types.FieldLinkedIn, compile(`linkedin`, `linked\s*in`)},
	{types.FieldGitHub, compile(`github`, `git\s*hub`)},
	{types.FieldWebsite, compile(`website`, `portfolio`, `personal\s*site`, `blog`, `^url$`)},
	{types.FieldSalaryExpectation, compile(`salary`, `compensation`, `pay\s*expectation`, `desired\s*pay`, `pay\s*range`, `pay\s*requirement`)},
	{types.FieldStartDate, compile(`start\s*date`, `availability`, `when\s*can\s*you\s*start`, `notice\s*period`, `earliest\s*start`, `available\s*to\s*start`)},
	{types.FieldReferralSource, compile(`how\s*did\s*you\s*hear`, `source`, `referral`, `referred\s*by`, `how\s*did\s*you\s*find`, `hear\s*about`, `learned\s*about`)},
	{types.FieldWorkAuthorization, compile(`work\s*authori[sz]ation`, `authori[sz]ed\s*to\s*work`, `sponsorship`, `visa`, `work\s*status`, `legally\s*authori[sz]ed`, `work\s*permit`)},
	{types.FieldGender, compile(`gender`, `sex`, `male\s*female`)},
	{types.FieldRace, compile(`race`, `ethnicity`, `demographic`, `eeo`, `racial`)},
	{types.FieldVeteranStatus, compile(`veteran`, `military\s*status`, `armed\s*forces`)},
	{types.FieldDisability, compile(`disability`, `accommodation`, `disabled`)},
	{types.FieldAddress, compile(`address`, `street`, `city`, `state`, `zip`, `postal`, `location`, `country`)},
}

// autocompleteHints maps HTML autocomplete tokens to field types.
var autocompleteHints = map[string]types.FieldType{
	"given-name":     types.FieldFirstName,
	"family-name":    types.FieldLastName,
	"email":          types.FieldEmail,
	"tel":            types.FieldPhone,
	"tel-national":   types.FieldPhone,
	"url":            types.FieldWebsite,
	"street-address": types.FieldAddress,
	"address-line1":  types.FieldAddress,
	"address-level2": types.FieldAddress,
	"postal-code":    types.FieldAddress,
	"country-name":   types.FieldAddress,
}

var inputTypeHints = map[string]types.FieldType{
	"email": types.FieldEmail,
	"tel":   types.FieldPhone,
	"file":  types.FieldResume,
}

var longTextMarkers = []string{"message", "description", "essay"}

// Classifier assigns a FieldType to an element from its raw signals.
type Classifier struct {
	table []fieldPattern
}

// NewClassifier returns a classifier using the built-in pattern table.
func NewClassifier() *Classifier {
	return &Classifier{table: fieldPatterns}
}

// Classify resolves the field type. Identifying attributes are matched
// first, then autocomplete and input-type hints, then the surrounding text,
// and finally the tag-based custom_* fallbacks.
//
// Surrounding text usually spans sibling fields, so it is only consulted
// when the element has no label of its own or is a choice input whose label
// names the option rather than the question.
func (c *Classifier) Classify(info browser.ElementInfo) types.FieldType {
	if ft, ok := c.match(identityText(info)); ok {
		return ft
	}
	if ft, ok := hint(info); ok {
		return ft
	}
	if info.LabelText == "" || info.Type == "radio" || info.Type == "checkbox" {
		if ft, ok := c.match(fold(info.SurroundingText)); ok {
			return ft
		}
	}
	return fallback(info, SearchText(info))
}

func (c *Classifier) match(text string) (types.FieldType, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, fp := range c.table {
		for _, re := range fp.patterns {
			if re.MatchString(text) {
				return fp.fieldType, true
			}
		}
	}
	return "", false
}

func hint(info browser.ElementInfo) (types.FieldType, bool) {
	for _, token := range strings.Fields(strings.ToLower(info.AutoComplete)) {
		if ft, ok := autocompleteHints[token]; ok {
			return ft, true
		}
	}
	if info.Tag == "input" {
		if ft, ok := inputTypeHints[info.Type]; ok {
			return ft, true
		}
	}
	return "", false
}

func fallback(info browser.ElementInfo, search string) types.FieldType {
	switch {
	case info.Tag == "textarea" || info.ContentEditable:
		return types.FieldCustomTextLong
	case info.Tag == "select" || info.Role == "combobox" || info.Role == "listbox":
		return types.FieldCustomSelect
	case info.Tag == "input":
		switch info.Type {
		case "", "text", "email", "tel", "url", "number", "search":
			for _, marker := range longTextMarkers {
				if strings.Contains(search, marker) {
					return types.FieldCustomTextLong
				}
			}
			return types.FieldCustomTextShort
		}
	}
	return types.FieldUnknown
}

// identityText joins the element's own identifying attributes, folded.
func identityText(info browser.ElementInfo) string {
	return fold(strings.Join([]string{
		info.Name, info.ID, info.Placeholder, info.AriaLabel, info.LabelText,
		info.DataAutomationID, info.DataTestID, info.DataField, info.DataQA,
		strings.Join(info.Classes, " "),
	}, " "))
}

// SearchText is every textual signal of the element, folded.
func SearchText(info browser.ElementInfo) string {
	return identityText(info) + " " + fold(info.SurroundingText)
}

// QuestionText is the human-facing prompt of the field.
func QuestionText(info browser.ElementInfo) string {
	switch {
	case info.LabelText != "":
		return info.LabelText
	case info.Placeholder != "":
		return info.Placeholder
	default:
		return info.AriaLabel
	}
}
