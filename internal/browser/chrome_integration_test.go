//go:build !short

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromeProvider_RealBrowser(t *testing.T) {
	if os.Getenv("AUTOAPPLY_CHROME_TEST") == "" {
		t.Skip("AUTOAPPLY_CHROME_TEST not set, skipping browser integration test")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><form>
<label for="fn">First Name</label><input id="fn" name="first_name" required>
<select name="src"><option>Choose</option><option value="web">Company Website</option></select>
<button type="submit">Submit</button></form></body></html>`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	provider := NewChromeProvider(ChromeOptions{Headless: true})
	defer func() { _ = provider.Close() }()

	session, err := provider.Acquire(ctx, "unknown")
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	page := session.Page
	require.NoError(t, page.Navigate(ctx, server.URL))

	el, _, found, err := FindFirst(ctx, page, []string{`#fn`})
	require.NoError(t, err)
	require.True(t, found)

	info, err := el.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First Name", info.LabelText)
	assert.True(t, info.Required)

	require.NoError(t, el.Fill(ctx, "Ada"))
	value, _, err := el.Attribute(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "first_name", value)

	sel, _, found, err := FindFirst(ctx, page, []string{`select[name="src"]`})
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, sel.SelectOption(ctx, SelectByLabel, "Company Website"))

	_, _, found, err = FindFirst(ctx, page, []string{`button:has-text("Submit")`})
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, session.Close())
	assert.Equal(t, 0, provider.Active())
}
