package fieldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/types"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		info browser.ElementInfo
		ft   types.FieldType
		want float64
	}{
		{name: "bare", info: browser.ElementInfo{}, ft: types.FieldEmail, want: 0.5},
		{name: "label", info: browser.ElementInfo{LabelText: "Email"}, ft: types.FieldEmail, want: 0.75},
		{name: "label and required", info: browser.ElementInfo{LabelText: "Email", Required: true}, ft: types.FieldEmail, want: 0.85},
		{
			name: "everything clamps to one",
			info: browser.ElementInfo{LabelText: "Email", Required: true, AutoComplete: "email", DataAutomationID: "email"},
			ft:   types.FieldEmail,
			want: 1.0,
		},
		{name: "required custom is penalised", info: browser.ElementInfo{LabelText: "Why us?", Required: true}, ft: types.FieldCustomTextLong, want: 0.7},
		{name: "optional custom", info: browser.ElementInfo{LabelText: "Why us?"}, ft: types.FieldCustomTextLong, want: 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.info, tt.ft), 1e-9)
		})
	}
}

// Adding a positive signal never lowers the score.
func TestScore_Monotonic(t *testing.T) {
	base := browser.ElementInfo{Tag: "input"}
	signals := []func(*browser.ElementInfo){
		func(i *browser.ElementInfo) { i.LabelText = "Phone" },
		func(i *browser.ElementInfo) { i.AutoComplete = "tel" },
		func(i *browser.ElementInfo) { i.DataTestID = "phone" },
		func(i *browser.ElementInfo) { i.DataAutomationID = "phone" },
	}

	for _, ft := range []types.FieldType{types.FieldPhone, types.FieldCustomTextShort} {
		for _, required := range []bool{false, true} {
			info := base
			info.Required = required
			prev := Score(info, ft)
			for _, add := range signals {
				add(&info)
				next := Score(info, ft)
				assert.GreaterOrEqual(t, next, prev, "field %s required=%v", ft, required)
				assert.LessOrEqual(t, next, 1.0)
				prev = next
			}
		}
	}
}
