package domain

import "testing"

func TestEmbedText(t *testing.T) {
	rec := CaseRecord{
		CaseName:           "Smith v. Jones",
		Docket:             "21-1234",
		NeutralCitation:    "2024 CA9 17",
		PrecedentialStatus: "Published",
		Summary:            "Reversed and remanded.",
	}
	want := "Smith v. Jones | 21-1234 | 2024 CA9 17 | Published | Reversed and remanded."
	if got := rec.EmbedText(); got != want {
		t.Fatalf("EmbedText = %q, want %q", got, want)
	}
}

func TestEmbedTextSkipsEmptyFields(t *testing.T) {
	rec := CaseRecord{CaseName: "Smith v. Jones", Summary: "Affirmed."}
	if got := rec.EmbedText(); got != "Smith v. Jones | Affirmed." {
		t.Fatalf("EmbedText = %q", got)
	}
}

func TestEmbedTextAllAbsent(t *testing.T) {
	rec := CaseRecord{ID: "abc", CourtPath: "ct", DownloadURL: "u"}
	if got := rec.EmbedText(); got != "" {
		t.Fatalf("EmbedText of field-less record = %q, want empty", got)
	}
}
