package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/asanoha/kotae/internal/models"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty = %v, %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json = %v, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("unknown format must fail")
	}
}

func TestWriteSearchResults(t *testing.T) {
	response := &models.SearchResponse{
		Query: "gopher",
		Results: []*models.RankedResult{
			{DocumentID: "1", Title: "Burrows", Score: 0.8, Rank: 1, Preview: "gophers dig"},
		},
		TotalDocuments: 3,
		QueryTime:      2,
	}

	var text bytes.Buffer
	if err := WriteSearchResults(&text, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := text.String()
	for _, want := range []string{"Found 1 results", "Burrows", "0.8000", "gophers dig"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	var js bytes.Buffer
	if err := WriteSearchResults(&js, response, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Query != "gopher" || len(decoded.Results) != 1 {
		t.Errorf("json round-trip = %+v", decoded)
	}
}

func TestWriteAnswer(t *testing.T) {
	rec := &models.AnswerRecord{
		ID:            "ans1",
		Question:      "where do gophers live",
		Answer:        "In burrows.",
		DocumentsUsed: []string{"1"},
		Backend:       "stub",
	}

	var text bytes.Buffer
	if err := WriteAnswer(&text, rec, OutputText); err != nil {
		t.Fatal(err)
	}
	out := text.String()
	for _, want := range []string{"where do gophers live", "In burrows.", "Sources: 1", "Backend: stub"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}
