package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	results := []ApplicationResult{
		{Success: true, Status: StatusSubmitted, Platform: PlatformGreenhouse},
		{Status: StatusCaptchaBlocked, Platform: PlatformGreenhouse},
		{Status: StatusLowConfidence, Platform: PlatformUnknown},
		{Success: true, Status: StatusSubmitted, Platform: PlatformLever},
	}

	report := Summarize(results)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.ByStatus[StatusSubmitted])
	assert.Equal(t, 1, report.ByStatus[StatusCaptchaBlocked])
	assert.Equal(t, 2, report.ByPlatform[PlatformGreenhouse])
	assert.Equal(t, 1, report.ByPlatform[PlatformUnknown])
}

func TestSummarize_Empty(t *testing.T) {
	report := Summarize(nil)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.ByStatus)
}
