package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/browser/htmldom"
	"github.com/jonathan/autoapply/internal/captcha"
	"github.com/jonathan/autoapply/internal/fieldmap"
	"github.com/jonathan/autoapply/internal/types"
)

const greenhouseURL = "https://boards.greenhouse.io/acme/jobs/123"

const greenhouseForm = `<html><body>
<h1>Software Engineer</h1>
%s
<form id="application_form">
  <div><label for="first_name">First Name</label><input id="first_name" name="first_name" required></div>
  <div><label for="last_name">Last Name</label><input id="last_name" name="last_name" required></div>
  <div><label for="email">Email</label><input id="email" type="email" name="email" required></div>
  <div><label for="resume">Resume/CV</label><input id="resume" type="file" name="resume" accept=".pdf" required></div>
  <button id="submit_app" type="submit">Submit Application</button>
</form></body></html>`

const thankYou = `<html><body><div id="thank_you"><h1>Thank you for applying!</h1>
<p>Confirmation #: GH-12345</p></div></body></html>`

const recaptchaFrame = `<iframe src="https://www.google.com/recaptcha/api2/anchor?k=6Lc-site"></iframe>`

func greenhouse(extra string) string {
	return fmt.Sprintf(greenhouseForm, extra)
}

func testProfile(t *testing.T) *types.UserProfile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	return &types.UserProfile{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Phone:           "+1 555 0100",
		ResumePath:      path,
		YearsExperience: 7,
		Skills:          []string{"Go", "PostgreSQL"},
	}
}

type sinkRecorder struct {
	names []string
}

func (s *sinkRecorder) Save(_ context.Context, name string, _ []byte) error {
	s.names = append(s.names, name)
	return nil
}

func testDeps(t *testing.T, provider browser.Provider) Deps {
	t.Helper()
	opts := fieldmap.DefaultOptions()
	opts.FieldDelay = browser.Delay{}
	opts.UploadSettle = 0
	return Deps{
		Sessions: provider,
		Profile:  testProfile(t),
		Captcha: captcha.NewCoordinator(false, captcha.Stage{
			Strategy: captcha.NewPassive(5 * time.Millisecond),
			Timeout:  20 * time.Millisecond,
		}),
		Mapper:         opts,
		MaxSteps:       6,
		CaptchaTimeout: time.Second,
	}
}

func newPage(t *testing.T, url, markup string) *htmldom.Page {
	t.Helper()
	p, err := htmldom.New(url, markup)
	require.NoError(t, err)
	return p.Route(url, markup)
}

func TestGreenhouse_SubmitsAndVerifies(t *testing.T) {
	page := newPage(t, greenhouseURL, greenhouse(""))
	page.Route(greenhouseURL+"/confirmation", thankYou)
	require.NoError(t, page.GoTo("#submit_app", greenhouseURL+"/confirmation"))
	provider := htmldom.StaticProvider(page)

	h := NewPlatformHandler(Greenhouse, testDeps(t, provider))
	require.True(t, h.CanHandle(greenhouseURL))

	result := h.Apply(context.Background(), greenhouseURL)

	assert.True(t, result.Success, result.Error)
	assert.Equal(t, types.StatusSubmitted, result.Status)
	assert.Equal(t, types.PlatformGreenhouse, result.Platform)
	assert.Equal(t, "GH-12345", result.ConfirmationID)
	assert.GreaterOrEqual(t, result.FieldsFilled, 4)
	assert.Equal(t, 4, result.TotalFields)
	assert.NotEmpty(t, result.SessionID)

	acquired, released := provider.Counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestGreenhouse_CaptchaBlocks(t *testing.T) {
	page := newPage(t, greenhouseURL, greenhouse(recaptchaFrame))
	deps := testDeps(t, htmldom.StaticProvider(page))
	coordinator := deps.Captcha.(*captcha.Coordinator)

	result := NewPlatformHandler(Greenhouse, deps).Apply(context.Background(), greenhouseURL)

	assert.False(t, result.Success)
	assert.Equal(t, types.StatusCaptchaBlocked, result.Status)
	assert.Zero(t, result.FieldsFilled)
	assert.Empty(t, page.Value("#first_name"))
	assert.Equal(t, 1, coordinator.Stats().Failed)
}

// tokenStage reports a solve without touching the page, the way paid
// solvers inject a token and leave the widget in the DOM.
type tokenStage struct {
	calls int
}

func (s *tokenStage) Name() string { return "token" }

func (s *tokenStage) Attempt(context.Context, browser.Page, time.Duration) (captcha.Outcome, error) {
	s.calls++
	return captcha.Solved, nil
}

func TestGreenhouse_SolvedCaptchaIsNotSolvedAgain(t *testing.T) {
	page := newPage(t, greenhouseURL, greenhouse(recaptchaFrame))
	page.Route(greenhouseURL+"/confirmation", thankYou)
	require.NoError(t, page.GoTo("#submit_app", greenhouseURL+"/confirmation"))

	stage := &tokenStage{}
	deps := testDeps(t, htmldom.StaticProvider(page))
	deps.Captcha = captcha.NewCoordinator(false, captcha.Stage{Strategy: stage, Timeout: time.Second})

	result := NewPlatformHandler(Greenhouse, deps).Apply(context.Background(), greenhouseURL)

	assert.True(t, result.Success, result.Error)
	assert.Equal(t, types.StatusSubmitted, result.Status)
	assert.Equal(t, 1, stage.calls)
	assert.Equal(t, 4, result.FieldsFilled)
	assert.Equal(t, "Ada", page.Value("#first_name"))
}

func TestFillStep_RetriesFieldsThatWereNotFilled(t *testing.T) {
	ctx := context.Background()
	page := htmldom.MustNew("https://careers.example.com/apply",
		`<html><body><form><label for="phone">Phone</label><input id="phone" name="phone" type="tel"></form></body></html>`)
	deps := testDeps(t, nil)
	deps.Profile.Phone = ""
	a := &attempt{deps: deps.withDefaults(), page: page, mapper: fieldmap.New(page, deps.Profile, deps.Mapper)}
	form := newFormState()

	require.NoError(t, a.fillStep(ctx, form))
	assert.Equal(t, 0, a.result.FieldsFilled)
	assert.Equal(t, 1, a.result.TotalFields)

	deps.Profile.Phone = "+1 555 0100"
	require.NoError(t, a.fillStep(ctx, form))
	assert.Equal(t, 1, a.result.FieldsFilled)
	assert.Equal(t, 1, a.result.TotalFields)
	assert.Equal(t, "+1 555 0100", page.Value("#phone"))

	require.NoError(t, a.fillStep(ctx, form))
	assert.Equal(t, 1, a.result.FieldsFilled)
}

func TestGreenhouse_UnverifiedSubmit(t *testing.T) {
	page := newPage(t, greenhouseURL, greenhouse(""))

	result := NewPlatformHandler(Greenhouse, testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), greenhouseURL)

	assert.False(t, result.Success)
	assert.Equal(t, types.StatusUnverified, result.Status)
	assert.Contains(t, result.Error, "did not advance")
	assert.Equal(t, "Ada", page.Value("#first_name"))
}

const workdayURL = "https://acme.wd5.myworkdayjobs.com/en-US/careers/job/Remote/Engineer_R123"

func TestWorkday_MultiStepGuestFlow(t *testing.T) {
	listing := `<html><body><h2>Engineer</h2><button data-automation-id="applyButton">Apply</button></body></html>`
	guest := `<html><body><button class="guest">Apply as Guest</button></body></html>`
	step1 := `<html><body><div data-automation-id="applyFlowPage">
		<div><label for="fn">First Name</label><input id="fn" name="legalNameSection_firstName" required></div>
		<div><label for="ln">Last Name</label><input id="ln" name="legalNameSection_lastName" required></div>
		<button data-automation-id="nextButton">Next</button></div></body></html>`
	step2 := `<html><body><div data-automation-id="applyFlowPage">
		<div><label for="em">Email Address</label><input id="em" type="email" name="email" required></div>
		<button data-automation-id="reviewButton">Review</button></div></body></html>`
	review := `<html><body><div data-automation-id="applyFlowPage"><p>Review your application</p>
		<button data-automation-id="submitButton">Submit</button></div></body></html>`
	done := `<html><body><div data-automation-id="applicationSubmitted"><h1>Thank you for applying.</h1></div></body></html>`

	page := newPage(t, workdayURL, listing).
		Route(workdayURL+"/apply", guest).
		Route(workdayURL+"/apply/step1", step1).
		Route(workdayURL+"/apply/step2", step2).
		Route(workdayURL+"/apply/review", review).
		Route(workdayURL+"/apply/done", done)
	require.NoError(t, page.GoTo(`[data-automation-id="applyButton"]`, workdayURL+"/apply"))
	require.NoError(t, page.GoTo(`button.guest`, workdayURL+"/apply/step1"))
	require.NoError(t, page.GoTo(`[data-automation-id="nextButton"]`, workdayURL+"/apply/step2"))
	require.NoError(t, page.GoTo(`[data-automation-id="reviewButton"]`, workdayURL+"/apply/review"))
	require.NoError(t, page.GoTo(`[data-automation-id="submitButton"]`, workdayURL+"/apply/done"))

	h := NewPlatformHandler(Workday, testDeps(t, htmldom.StaticProvider(page)))
	require.True(t, h.CanHandle(workdayURL))

	result := h.Apply(context.Background(), workdayURL)

	assert.True(t, result.Success, result.Error)
	assert.Equal(t, types.StatusSubmitted, result.Status)
	assert.Equal(t, types.PlatformWorkday, result.Platform)
	assert.Equal(t, "confirmed", result.ConfirmationID)
	assert.Equal(t, 3, result.FieldsFilled)
	assert.Equal(t, 4, result.Steps)
}

func TestWorkday_StuckStepsEndWithoutSubmitButton(t *testing.T) {
	markup := `<html><body><div data-automation-id="applyFlowPage">
		<div><label for="fn">First Name</label><input id="fn" name="firstName"></div></div></body></html>`
	page := newPage(t, workdayURL, markup)
	sink := &sinkRecorder{}
	deps := testDeps(t, htmldom.StaticProvider(page))
	deps.Screenshots = sink
	deps.MaxSteps = 3

	result := NewPlatformHandler(Workday, deps).Apply(context.Background(), workdayURL)

	assert.False(t, result.Success)
	assert.Equal(t, types.StatusNoSubmitButton, result.Status)
	assert.Equal(t, 3, result.Steps)
	assert.Len(t, sink.names, 3)
	assert.Equal(t, 1, result.FieldsFilled, "revisited fields are not filled twice")
}

func TestWorkday_MaxStepsExceeded(t *testing.T) {
	markup := `<html><body><div data-automation-id="applyFlowPage">
		<button data-automation-id="nextButton">Next</button></div></body></html>`
	page := newPage(t, workdayURL, markup)
	deps := testDeps(t, htmldom.StaticProvider(page))
	deps.MaxSteps = 2

	result := NewPlatformHandler(Workday, deps).Apply(context.Background(), workdayURL)

	assert.Equal(t, types.StatusMaxStepsExceeded, result.Status)
	assert.False(t, result.Success)
}

func TestWorkday_LoginWall(t *testing.T) {
	listing := `<html><body><button data-automation-id="applyButton">Apply</button></body></html>`
	login := `<html><body><div data-automation-id="signInContent">
		<input type="email" name="user"><input type="password" name="pw"></div></body></html>`
	page := newPage(t, workdayURL, listing).Route(workdayURL+"/login", login)
	require.NoError(t, page.GoTo(`[data-automation-id="applyButton"]`, workdayURL+"/login"))

	result := NewPlatformHandler(Workday, testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), workdayURL)

	assert.Equal(t, types.StatusLoginRequired, result.Status)
	assert.Empty(t, page.Value(`input[name="user"]`))
}

func TestTaleo_NoApplyButton(t *testing.T) {
	url := "https://acme.taleo.net/careersection/2/jobdetail.ftl?job=1"
	page := newPage(t, url, `<html><body><p>This position has been filled.</p></body></html>`)

	result := NewPlatformHandler(Taleo, testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), url)

	assert.Equal(t, types.StatusNoApplyButton, result.Status)
}

func TestLinkedIn_ExternalApplyRedirects(t *testing.T) {
	url := "https://www.linkedin.com/jobs/view/3900000001"
	page := newPage(t, url, `<html><body>
		<a class="jobs-apply-button" href="https://boards.greenhouse.io/acme/jobs/9">Apply</a></body></html>`)

	result := NewPlatformHandler(LinkedIn, testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), url)

	assert.Equal(t, types.StatusRedirect, result.Status)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/9", result.RedirectURL)
	assert.False(t, result.Success)
}

func TestIndeed_EasyApplyNeedsManualApplication(t *testing.T) {
	url := "https://www.indeed.com/viewjob?jk=abc123"
	page := newPage(t, url, `<html><body><button>Apply now</button></body></html>`)

	result := NewPlatformHandler(Indeed, testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), url)

	assert.Equal(t, types.StatusManualRequired, result.Status)
}

func TestAngelList_DelegatesToGreenhouse(t *testing.T) {
	url := "https://wellfound.com/jobs/123-backend-engineer"
	embed := `<script src="https://boards.greenhouse.io/embed/job_board/js?for=acme"></script>`
	page := newPage(t, url, greenhouse(embed))
	page.Route(url+"/thanks", thankYou)
	require.NoError(t, page.GoTo("#submit_app", url+"/thanks"))

	result := NewPlatformHandler(AngelList, testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), url)

	assert.True(t, result.Success, result.Error)
	assert.Equal(t, types.PlatformGreenhouse, result.Platform)
}

const unknownURL = "https://careers.acme-widgets.com/openings/42"

func TestGeneric_LowConfidenceAbortsBeforeFilling(t *testing.T) {
	markup := `<html><body><form>
		<div><label for="first">First Name</label><input id="first" name="first_name" required></div>
		<div><label for="email">Email</label><input id="email" type="email" name="email" autocomplete="email" required></div>
		<div><div><input name="q1" required></div></div>
		<div><div><input name="q2" required></div></div>
		<div><div><textarea name="q3" required></textarea></div></div>
		<button type="submit">Send</button>
	</form></body></html>`
	page := newPage(t, unknownURL, markup)

	result := NewGeneric(testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), unknownURL)

	assert.False(t, result.Success)
	assert.Equal(t, types.StatusLowConfidence, result.Status)
	assert.Zero(t, result.FieldsFilled)
	assert.Equal(t, 5, result.TotalFields)
	assert.Contains(t, result.Error, "2/5")
	assert.Empty(t, page.Value("#first"))
}

func TestGeneric_SubmitsConfidentForm(t *testing.T) {
	page := newPage(t, unknownURL, greenhouse(""))
	page.Route(unknownURL+"/done", `<html><body><p>We have received your application. Confirmation number: 88123</p></body></html>`)
	require.NoError(t, page.GoTo("#submit_app", unknownURL+"/done"))

	result := NewGeneric(testDeps(t, htmldom.StaticProvider(page))).Apply(context.Background(), unknownURL)

	assert.True(t, result.Success, result.Error)
	assert.Equal(t, types.PlatformUnknown, result.Platform)
	assert.Equal(t, "88123", result.ConfirmationID)
	assert.Equal(t, 4, result.FieldsFilled)
}

func TestGeneric_NoSubmitButton(t *testing.T) {
	markup := `<html><body><div><label for="first">First Name</label><input id="first" name="first_name"></div></body></html>`
	page := newPage(t, unknownURL, markup)
	sink := &sinkRecorder{}
	deps := testDeps(t, htmldom.StaticProvider(page))
	deps.Screenshots = sink

	result := NewGeneric(deps).Apply(context.Background(), unknownURL)

	assert.Equal(t, types.StatusNoSubmitButton, result.Status)
	assert.Equal(t, 1, result.FieldsFilled)
	assert.Len(t, sink.names, 1)
}

type panicPage struct{ browser.Page }

func (panicPage) Navigate(context.Context, string) error { panic("renderer crashed") }

type fixedProvider struct {
	page     browser.Page
	err      error
	released int
}

func (p *fixedProvider) Acquire(_ context.Context, platform types.Platform) (*browser.Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	return browser.NewSession("s-1", platform, p.page, func() error {
		p.released++
		return nil
	}), nil
}

func (p *fixedProvider) Close() error { return nil }

func TestApply_RecoversPanics(t *testing.T) {
	provider := &fixedProvider{page: panicPage{}}

	result := NewPlatformHandler(Greenhouse, testDeps(t, provider)).Apply(context.Background(), greenhouseURL)

	assert.Equal(t, types.StatusException, result.Status)
	assert.Equal(t, "renderer crashed", result.Error)
	assert.Equal(t, "s-1", result.SessionID)
	assert.Equal(t, 1, provider.released)
}

func TestApply_AcquireFailure(t *testing.T) {
	provider := &fixedProvider{err: errors.New("pool exhausted")}

	result := NewGeneric(testDeps(t, provider)).Apply(context.Background(), unknownURL)

	assert.Equal(t, types.StatusError, result.Status)
	assert.Contains(t, result.Error, "pool exhausted")
}

func TestApply_TimeoutReleasesSession(t *testing.T) {
	page := newPage(t, greenhouseURL, greenhouse(""))
	provider := htmldom.StaticProvider(page)
	deps := testDeps(t, provider)
	deps.Timing = Timing{Settle: browser.Delay{Min: time.Second, Max: time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := NewPlatformHandler(Greenhouse, deps).Apply(ctx, greenhouseURL)

	assert.Equal(t, types.StatusTimeout, result.Status)
	_, released := provider.Counts()
	assert.Equal(t, 1, released)
}

func TestDefault_DispatchOrder(t *testing.T) {
	handlers := Default(Deps{})
	require.Len(t, handlers, 11)

	var platforms []types.Platform
	for _, h := range handlers {
		platforms = append(platforms, h.Platform())
	}
	assert.Equal(t, []types.Platform{
		types.PlatformWorkday, types.PlatformTaleo, types.PlatformICIMS, types.PlatformSuccessFactors,
		types.PlatformADP, types.PlatformAngelList, types.PlatformGreenhouse, types.PlatformLever,
		types.PlatformDice, types.PlatformIndeed, types.PlatformLinkedIn,
	}, platforms)

	tests := map[string]types.Platform{
		"https://jobs.lever.co/acme/1":                      types.PlatformLever,
		"https://www.dice.com/job-detail/abc":               types.PlatformDice,
		"https://acme.icims.com/jobs/1/job":                 types.PlatformICIMS,
		"https://career4.successfactors.com/career?id=1":    types.PlatformSuccessFactors,
		"https://workforcenow.adp.com/mascsr/default/mdf/1": types.PlatformADP,
	}
	for url, want := range tests {
		var got types.Platform
		for _, h := range handlers {
			if h.CanHandle(url) {
				got = h.Platform()
				break
			}
		}
		assert.Equal(t, want, got, url)
	}
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sink := DirSink{Dir: dir}

	require.NoError(t, sink.Save(context.Background(), "greenhouse-s1-step2", []byte("<html><body>x</body></html>")))

	_, err := os.Stat(filepath.Join(dir, "greenhouse-s1-step2.html"))
	assert.NoError(t, err)
}
