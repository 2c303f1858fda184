package unit

import (
	"strings"
	"testing"
	"time"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
	dashboardsvc "broker-dashboard-app/backend/internal/service/dashboard"
)

func TestRosterSOQL(t *testing.T) {
	soql := dashboardsvc.RosterSOQL(200)
	want := "SELECT Id, Name FROM User WHERE IsActive = true LIMIT 200"
	if soql != want {
		t.Fatalf("roster soql = %q, want %q", soql, want)
	}
}

func TestTaskRecordsSOQL_ExactSubject(t *testing.T) {
	start := time.Date(2025, time.June, 2, 4, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 3, 4, 0, 0, 0, time.UTC)

	soql, err := dashboardsvc.TaskRecordsSOQL(dashboarddomain.CategoryApplication, start, end, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(soql, "Subject = 'Application Taken'") {
		t.Fatalf("application filter must be exact match: %q", soql)
	}
	if !strings.Contains(soql, "CreatedDate >= 2025-06-02T04:00:00Z") {
		t.Fatalf("missing start bound: %q", soql)
	}
	if !strings.Contains(soql, "CreatedDate < 2025-06-03T04:00:00Z") {
		t.Fatalf("missing exclusive end bound: %q", soql)
	}
	if !strings.Contains(soql, "ORDER BY CreatedDate ASC") {
		t.Fatalf("records must come back in creation order: %q", soql)
	}
	if !strings.Contains(soql, "LIMIT 2000") {
		t.Fatalf("missing limit: %q", soql)
	}
}

func TestTaskRecordsSOQL_PrefixSubject(t *testing.T) {
	start := time.Date(2025, time.June, 1, 4, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.July, 1, 4, 0, 0, 0, time.UTC)

	soql, err := dashboardsvc.TaskRecordsSOQL(dashboarddomain.CategoryContact, start, end, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(soql, "Subject LIKE 'Outbound Call%'") {
		t.Fatalf("contact filter must be prefix match: %q", soql)
	}
}

func TestTaskRecordsSOQL_UnknownCategory(t *testing.T) {
	if _, err := dashboardsvc.TaskRecordsSOQL(dashboarddomain.Category("bogus"), time.Now(), time.Now(), 10); err == nil {
		t.Fatalf("expected error for unmapped category")
	}
}

func TestGroupedCountSOQL(t *testing.T) {
	daily := dashboardsvc.GroupedCountSOQL("Opportunity", "Appraisal_Ordered__c", "Appraisal_Date__c", dashboardsvc.PeriodDaily)
	if !strings.Contains(daily, "Appraisal_Date__c = TODAY") {
		t.Fatalf("daily query must use TODAY literal: %q", daily)
	}
	if !strings.Contains(daily, "SELECT OwnerId, COUNT(Id) total FROM Opportunity") {
		t.Fatalf("unexpected projection: %q", daily)
	}
	if !strings.Contains(daily, "GROUP BY OwnerId") {
		t.Fatalf("missing group by: %q", daily)
	}

	monthly := dashboardsvc.GroupedCountSOQL("Opportunity", "Submitted_to_Lender__c", "Date_Submitted__c", dashboardsvc.PeriodMonthly)
	if !strings.Contains(monthly, "Date_Submitted__c = THIS_MONTH") {
		t.Fatalf("monthly query must use THIS_MONTH literal: %q", monthly)
	}
}

func TestClassifySubject(t *testing.T) {
	cases := []struct {
		subject string
		want    dashboarddomain.Category
		ok      bool
	}{
		{"Application Taken", dashboarddomain.CategoryApplication, true},
		{"Outbound Call", dashboarddomain.CategoryContact, true},
		{"Outbound Call - Please Update", dashboarddomain.CategoryContact, true},
		{"  Outbound Call  ", dashboarddomain.CategoryContact, true},
		{"Application Taken Later", "", false},
		{"Inbound Call", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := dashboarddomain.ClassifySubject(tc.subject)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ClassifySubject(%q) = (%q, %v), want (%q, %v)", tc.subject, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRosterResolve(t *testing.T) {
	roster := dashboarddomain.Roster{"u1": "Ana", "u2": ""}
	if got := roster.Resolve("u1"); got != "Ana" {
		t.Fatalf("resolve u1 = %q", got)
	}
	if got := roster.Resolve("u2"); got != dashboarddomain.UnknownOwnerName {
		t.Fatalf("empty name should fall back, got %q", got)
	}
	if got := roster.Resolve("missing"); got != dashboarddomain.UnknownOwnerName {
		t.Fatalf("missing id should fall back, got %q", got)
	}
}
