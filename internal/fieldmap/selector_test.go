package fieldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/autoapply/internal/browser"
)

func TestBuildSelector_Priority(t *testing.T) {
	full := browser.ElementInfo{
		Tag:              "input",
		ID:               "email",
		DataAutomationID: "emailField",
		DataTestID:       "email-test",
		DataQA:           "email-qa",
		DataField:        "email-field",
		Name:             "user_email",
		Placeholder:      "you@example.com",
		AriaLabel:        "Email",
		Classes:          []string{"form-control", "wide"},
	}

	tests := []struct {
		name   string
		mutate func(*browser.ElementInfo)
		want   string
	}{
		{name: "id wins", mutate: func(*browser.ElementInfo) {}, want: "#email"},
		{name: "automation id", mutate: func(i *browser.ElementInfo) { i.ID = "" }, want: `[data-automation-id="emailField"]`},
		{name: "test id", mutate: func(i *browser.ElementInfo) { i.ID, i.DataAutomationID = "", "" }, want: `[data-testid="email-test"]`},
		{name: "qa", mutate: func(i *browser.ElementInfo) { i.ID, i.DataAutomationID, i.DataTestID = "", "", "" }, want: `[data-qa="email-qa"]`},
		{
			name:   "data-field",
			mutate: func(i *browser.ElementInfo) { i.ID, i.DataAutomationID, i.DataTestID, i.DataQA = "", "", "", "" },
			want:   `[data-field="email-field"]`,
		},
		{
			name: "name",
			mutate: func(i *browser.ElementInfo) {
				i.ID, i.DataAutomationID, i.DataTestID, i.DataQA, i.DataField = "", "", "", "", ""
			},
			want: `input[name="user_email"]`,
		},
		{
			name: "placeholder",
			mutate: func(i *browser.ElementInfo) {
				i.ID, i.DataAutomationID, i.DataTestID, i.DataQA, i.DataField, i.Name = "", "", "", "", "", ""
			},
			want: `input[placeholder="you@example.com"]`,
		},
		{
			name: "aria label",
			mutate: func(i *browser.ElementInfo) {
				i.ID, i.DataAutomationID, i.DataTestID, i.DataQA, i.DataField, i.Name, i.Placeholder = "", "", "", "", "", "", ""
			},
			want: `input[aria-label="Email"]`,
		},
		{
			name: "classes",
			mutate: func(i *browser.ElementInfo) {
				*i = browser.ElementInfo{Tag: "input", Classes: []string{"form-control", "wide", "2col"}}
			},
			want: "input.form-control.wide",
		},
		{name: "bare tag", mutate: func(i *browser.ElementInfo) { *i = browser.ElementInfo{Tag: "textarea"} }, want: "textarea"},
		{name: "non-identifier id", mutate: func(i *browser.ElementInfo) { i.ID = "2fa:code" }, want: `[id="2fa:code"]`},
		{
			name:   "quotes escaped",
			mutate: func(i *browser.ElementInfo) { *i = browser.ElementInfo{Tag: "input", Placeholder: `Say "hi"`} },
			want:   `input[placeholder="Say \"hi\""]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := full
			tt.mutate(&info)
			assert.Equal(t, tt.want, BuildSelector(info))
		})
	}
}
