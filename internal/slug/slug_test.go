package slug

import (
	"regexp"
	"testing"
)

var labelPattern = regexp.MustCompile(`^[a-z]+-[a-z]+-\d{4}$`)

func TestNewProducesRoutableLabels(t *testing.T) {
	for i := 0; i < 100; i++ {
		label := New()
		if !labelPattern.MatchString(label) {
			t.Fatalf("label %q does not match expected shape", label)
		}
		if len(label) > 63 {
			t.Fatalf("label %q exceeds DNS label length", label)
		}
	}
}
