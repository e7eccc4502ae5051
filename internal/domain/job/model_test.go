package job

import (
	"testing"
	"time"
)

// TestValidate_RequiredFields verifies each missing required field is rejected.
func TestValidate_RequiredFields(t *testing.T) {
	base := SendJob{
		CreatedAt: time.Now(),
		Sender:    "sender@example.com",
		Subject:   "Hello",
		Message:   "Body",
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid job, got %v", err)
	}

	noSender := base
	noSender.Sender = "  "
	if err := noSender.Validate(); err != ErrMissingSender {
		t.Errorf("expected ErrMissingSender, got %v", err)
	}

	noSubject := base
	noSubject.Subject = ""
	if err := noSubject.Validate(); err != ErrMissingSubject {
		t.Errorf("expected ErrMissingSubject, got %v", err)
	}

	noMessage := base
	noMessage.Message = ""
	if err := noMessage.Validate(); err != ErrMissingMessage {
		t.Errorf("expected ErrMissingMessage, got %v", err)
	}
}

// TestStatusFromCounts verifies the aggregate status is a pure function of counts.
func TestStatusFromCounts(t *testing.T) {
	cases := []struct {
		successes int
		failures  int
		want      string
	}{
		{3, 0, StatusSuccess},
		{0, 3, StatusError},
		{2, 1, StatusPartial},
		{0, 0, StatusSuccess}, // dispatcher never runs with zero recipients
	}
	for _, c := range cases {
		if got := StatusFromCounts(c.successes, c.failures); got != c.want {
			t.Errorf("StatusFromCounts(%d, %d) = %q, want %q", c.successes, c.failures, got, c.want)
		}
	}
}

// TestSummarizeAddresses_ShortList verifies no ellipsis for five or fewer addresses.
func TestSummarizeAddresses_ShortList(t *testing.T) {
	got := SummarizeAddresses([]string{"a@x.com", "b@x.com"})
	want := "a@x.com, b@x.com"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestSummarizeAddresses_Truncated verifies truncation to five with the ellipsis marker.
func TestSummarizeAddresses_Truncated(t *testing.T) {
	addrs := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com"}
	got := SummarizeAddresses(addrs)
	want := "a@x.com, b@x.com, c@x.com, d@x.com, e@x.com..."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestSummarizeCount verifies uploads are summarized as a bare count.
func TestSummarizeCount(t *testing.T) {
	if got := SummarizeCount(42); got != "42" {
		t.Errorf("got %q, want %q", got, "42")
	}
}
