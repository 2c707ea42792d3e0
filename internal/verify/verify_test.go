package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoapply/internal/browser/htmldom"
)

const (
	formURL    = "https://boards.greenhouse.io/acme/jobs/1"
	confirmURL = "https://boards.greenhouse.io/acme/jobs/1/confirmation"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		html       string
		indicators []string
		wantOK     bool
		wantID     string
		wantErr    string
	}{
		{
			name:   "thank you page with id",
			url:    confirmURL,
			html:   `<html><body><h1>Thank you for applying!</h1><p>Confirmation #: GH-12345</p></body></html>`,
			wantOK: true,
			wantID: "GH-12345",
		},
		{
			name:   "thank you page without id",
			url:    confirmURL,
			html:   `<html><body><h1>Application submitted</h1></body></html>`,
			wantOK: true,
			wantID: ConfirmedMarker,
		},
		{
			name:    "same url with form still visible",
			url:     formURL,
			html:    `<html><body><form><input name="email"><button>Submit</button></form><p>Thank you for applying</p></body></html>`,
			wantErr: "page did not advance",
		},
		{
			name:   "same url with form hidden",
			url:    formURL,
			html:   `<html><body><form style="display:none"><input name="email"></form><div>Your application has been received</div></body></html>`,
			wantOK: true,
			wantID: ConfirmedMarker,
		},
		{
			name:    "no success phrase",
			url:     confirmURL,
			html:    `<html><body><h1>Jobs at Acme</h1></body></html>`,
			wantErr: "no confirmation found",
		},
		{
			name:    "error alert overrides phrase",
			url:     confirmURL,
			html:    `<html><body><p>Application submitted</p><div role="alert">Resume upload failed</div></body></html>`,
			wantErr: "submission error: Resume upload failed",
		},
		{
			name:    "hidden error element is ignored",
			url:     confirmURL,
			html:    `<html><body><p>Thanks for applying</p><div class="error" style="display:none">Oops</div></body></html>`,
			wantOK:  true,
			wantID:  ConfirmedMarker,
			wantErr: "",
		},
		{
			name:    "empty live region does not hide a later error",
			url:     "https://x/apply?step=2",
			html:    `<html><body><div role="alert"></div><p>Application received</p><div class="error-message">Email is invalid</div></body></html>`,
			wantErr: "submission error: Email is invalid",
		},
		{
			name:   "empty live region alone is not an error",
			url:    confirmURL,
			html:   `<html><body><div role="alert"> </div><p>Application received</p></body></html>`,
			wantOK: true,
			wantID: ConfirmedMarker,
		},
		{
			name:       "platform indicator counts as positive",
			url:        confirmURL,
			html:       `<html><body><div data-automation-id="congratulationsMessage">All done</div></body></html>`,
			indicators: []string{`[data-automation-id="congratulationsMessage"]`},
			wantOK:     true,
			wantID:     ConfirmedMarker,
		},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := htmldom.MustNew(tt.url, tt.html)
			res := v.Verify(context.Background(), page, formURL, tt.indicators...)
			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, tt.wantID, res.ConfirmationID)
			if tt.wantErr != "" {
				assert.Contains(t, res.Error, tt.wantErr)
			} else {
				assert.Empty(t, res.Error)
			}
		})
	}
}

func TestVerify_DefaultPhrases(t *testing.T) {
	pages := map[string]string{
		"thank you for your application": "Thank you for your application to Acme.",
		"application received":           "Application received",
		"successfully submitted":         "Your details were successfully submitted.",
		"we have received":               "We have received it and will be in touch.",
		"confirmation":                   "Confirmation: a recruiter will email you.",
		"next steps":                     "Next steps: a recruiter will reach out.",
	}
	v := New()
	for phrase, body := range pages {
		t.Run(phrase, func(t *testing.T) {
			page := htmldom.MustNew(confirmURL, `<html><body><p>`+body+`</p></body></html>`)
			res := v.Verify(context.Background(), page, formURL)
			assert.True(t, res.Success, res.Error)
			assert.Empty(t, res.Error)
		})
	}
}

func TestVerify_CustomPhrase(t *testing.T) {
	page := htmldom.MustNew(confirmURL, `<html><body>Bewerbung eingegangen</body></html>`)

	res := New().Verify(context.Background(), page, formURL)
	assert.False(t, res.Success)

	res = New(WithPhrases("Bewerbung eingegangen")).Verify(context.Background(), page, formURL)
	require.True(t, res.Success)
}

func TestExtractConfirmationID(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Your confirmation number: ABC-2024-77", "ABC-2024-77"},
		{"Confirmation ID req12345", "REQ12345"},
		{"confirmation: 99887766", "99887766"},
		{"You will receive a confirmation email shortly", ConfirmedMarker},
		{"Nothing here", ConfirmedMarker},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractConfirmationID(tt.text))
		})
	}
}
