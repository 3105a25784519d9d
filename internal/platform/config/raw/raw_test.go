package raw

import "testing"

func TestConf(t *testing.T) {
	t.Setenv("LOG_LEVEL", " debug ")
	t.Setenv("LOG_CALLER", "yes")
	t.Setenv("LOG_SAMPLE_EVERY", "-3")

	c := New().Prefix("LOG_")
	if got := c.Get("LEVEL", "info"); got != "debug" {
		t.Fatalf("level = %q", got)
	}
	if got := c.Get("FORMAT", "json"); got != "json" {
		t.Fatalf("format default = %q", got)
	}
	if !c.GetBool("CALLER", false) || c.GetBool("MISSING", false) {
		t.Fatalf("bool parsing")
	}
	if got := c.GetInt("SAMPLE_EVERY", 7); got != 7 {
		t.Fatalf("negative should fall back, got %d", got)
	}
}
