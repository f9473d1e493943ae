package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_GroupingSeparatorsEquivalent(t *testing.T) {
	assert.Equal(t, Normalize("+5.000 VND"), Normalize("+5,000 VND"))
	assert.Equal(t, Normalize("+5.000.000 VND"), Normalize("+5,000,000 VND"))
	assert.Equal(t, Normalize("-1.250 VND"), Normalize("-1,250 VND"))
}

func TestNormalize_DifferingLeadingDigitsNeverEqual(t *testing.T) {
	assert.NotEqual(t, Normalize("+5.000 VND"), Normalize("+6.000 VND"))
	assert.NotEqual(t, Normalize("+10.000 VND"), Normalize("+1.000 VND"))
	assert.NotEqual(t, Normalize("+5.000 VND"), Normalize("-5.000 VND"))
}

func TestNormalize_TruncatesAtFirstSeparator(t *testing.T) {
	assert.Equal(t, "+5 VND", Normalize("+5.000 VND"))
	assert.Equal(t, "+12 VND", Normalize("+12,345,678 VND"))
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "+5.000 VND", FormatVND(5000))
	assert.Equal(t, "+5.000.000 VND", FormatVND(5000000))
	assert.Equal(t, "+500 VND", FormatVND(500))
	assert.Equal(t, "+1.234.567 VND", FormatVND(1234567))
	assert.Equal(t, "-5.000 VND", FormatVND(-5000))
}

func TestExpectedFor_MatchesRelayFormats(t *testing.T) {
	// The relay reports dot- or comma-grouped amounts; both must compare
	// equal to the expectation derived from the stored price.
	assert.Equal(t, ExpectedFor(5000), Normalize("+5,000 VND"))
	assert.Equal(t, ExpectedFor(5000), Normalize("+5.000 VND"))
	assert.Equal(t, ExpectedFor(500), Normalize("+500 VND"))
	assert.NotEqual(t, ExpectedFor(6000), Normalize("+5,000 VND"))
}
