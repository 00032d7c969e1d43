package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSiteStatusString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status   SiteStatus
		expected string
	}{
		{SiteAdded, "added"},
		{SiteProcessed, "processed"},
		{SiteProcessedWithProblems, "processed_with_problems"},
		{SiteProcessing, "processing"},
		{SiteConnectionProblem, "connection_problem"},
		{SiteRobotsTxtProblem, "robots_txt_problem"},
		{SiteStatus(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.status.String() != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, tc.status.String())
			}
		})
	}
}

func TestPageStatusValues(t *testing.T) {
	t.Parallel()

	// Persisted values; reordering would corrupt stored records.
	testCases := []struct {
		status   PageStatus
		expected int
	}{
		{PageUnprocessed, 0},
		{PageProcessed, 1},
		{PageError, 2},
		{PageRobotsDisallowed, 3},
		{PageBinary, 4},
		{PageProcessing, 5},
	}

	for _, tc := range testCases {
		if int(tc.status) != tc.expected {
			t.Errorf("expected %s to be %d, got %d", tc.status, tc.expected, int(tc.status))
		}
	}
}

func TestSiteStatusIsProblem(t *testing.T) {
	t.Parallel()

	if !SiteConnectionProblem.IsProblem() || !SiteRobotsTxtProblem.IsProblem() {
		t.Error("expected connection and robots problems to be problems")
	}
	if SiteProcessedWithProblems.IsProblem() {
		t.Error("expected processed_with_problems not to be a retryable problem")
	}
}

func TestNewSiteInfo(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	info := NewSiteInfo("example.com", now)

	if info.Status != SiteAdded {
		t.Errorf("expected status added, got %s", info.Status)
	}
	if !info.StatusTime.Equal(now) {
		t.Errorf("expected status time %v, got %v", now, info.StatusTime)
	}
	if !info.RefreshEnabled {
		t.Error("expected refresh to be enabled by default")
	}
}

func TestSiteJSON(t *testing.T) {
	t.Parallel()

	t.Run("statuses are encoded by name", func(t *testing.T) {
		t.Parallel()

		site := Site{
			Info: SiteInfo{Domain: "example.com", Status: SiteProcessedWithProblems},
			Contents: &SiteContents{
				Pages: []Page{{ID: 0, URL: "http://example.com/", Status: PageError, HTTPStatus: 500}},
				Links: []Link{},
			},
		}
		data, err := json.Marshal(site)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		s := string(data)
		if !strings.Contains(s, `"status":"processed_with_problems"`) {
			t.Errorf("expected site status name in %s", s)
		}
		if !strings.Contains(s, `"status":"error"`) {
			t.Errorf("expected page status name in %s", s)
		}
	})

	t.Run("unknown status name is rejected", func(t *testing.T) {
		t.Parallel()

		var info SiteInfo
		err := json.Unmarshal([]byte(`{"domain":"example.com","status":"bogus"}`), &info)
		if err == nil {
			t.Error("expected error for unknown status")
		}
	})

	t.Run("info-only site omits contents", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(Site{Info: SiteInfo{Domain: "example.com"}})
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if strings.Contains(string(data), "contents") {
			t.Errorf("expected no contents key, got %s", data)
		}
	})
}
