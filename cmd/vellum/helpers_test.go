package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"vellum/internal/diag"
	"vellum/internal/source"
	"vellum/internal/ui"
)

func TestReadToggle(t *testing.T) {
	cases := []struct {
		input string
		want  toggle
	}{
		{"", toggleAuto},
		{"auto", toggleAuto},
		{" ON ", toggleOn},
		{"off", toggleOff},
	}
	for _, tc := range cases {
		got, err := readToggle("color", tc.input)
		if err != nil {
			t.Fatalf("readToggle(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("readToggle(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := readToggle("color", "always"); err == nil {
		t.Fatalf("expected an error for an unknown value")
	}
	if !toggleOn.enabled(nil) || toggleOff.enabled(nil) {
		t.Fatalf("explicit toggles must not depend on the terminal")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for n, want := range cases {
		if got := formatBytes(n); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestParsePositive(t *testing.T) {
	if n, err := parsePositive("line", "12"); err != nil || n != 12 {
		t.Fatalf("parsePositive(12) = %d, %v", n, err)
	}
	for _, bad := range []string{"0", "-3", "x"} {
		if _, err := parsePositive("line", bad); err == nil {
			t.Fatalf("parsePositive(%q) should fail", bad)
		}
	}
}

func TestToJSONEntriesUsesOneBasedPositions(t *testing.T) {
	entries := []diag.Entry{
		{Kind: diag.KindError, Message: "boom", Location: diag.Location{
			File:  "MAIN",
			Start: source.LineCol{Line: 0, Column: 4},
			End:   source.LineCol{Line: 0, Column: 6},
		}},
		{Kind: diag.KindNote, Message: "done", Location: diag.NoLocation},
	}
	got := toJSONEntries(entries)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].File != "MAIN" || got[0].Line != 1 || got[0].Column != 5 {
		t.Fatalf("unexpected located entry: %+v", got[0])
	}
	if got[1].File != "" || got[1].Line != 0 {
		t.Fatalf("unlocated entry should have no position: %+v", got[1])
	}
}

func TestRelevantChange(t *testing.T) {
	cases := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/doc/main.typ", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/doc/ch1.typ", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/doc/main.typ", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/doc/.main.typ.swp", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/doc/main.typ~", Op: fsnotify.Write}, false},
	}
	for _, tc := range cases {
		if got := relevantChange(tc.ev); got != tc.want {
			t.Fatalf("relevantChange(%v) = %v, want %v", tc.ev, got, tc.want)
		}
	}
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "main.typ")
	if got := watchDirs(doc, ""); len(got) != 1 || got[0] != dir {
		t.Fatalf("watchDirs without root = %v", got)
	}
	if got := watchDirs(doc, dir); len(got) != 1 {
		t.Fatalf("root equal to the document dir should not be added twice: %v", got)
	}
	other := t.TempDir()
	if got := watchDirs(doc, other); len(got) != 2 || got[1] != other {
		t.Fatalf("watchDirs with root = %v", got)
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, ui.Event{Kind: ui.EventChanged, File: "ch1.typ"})
	printEvent(&buf, ui.Event{Kind: ui.EventCompiling})
	printEvent(&buf, ui.Event{Kind: ui.EventCompiled, Pages: 2, Elapsed: 1500 * time.Microsecond})
	printEvent(&buf, ui.Event{Kind: ui.EventFailed})
	want := "changed: ch1.typ\ncompiled 2 page(s) in 1.5 ms\ncompilation failed\n"
	if buf.String() != want {
		t.Fatalf("printEvent output = %q, want %q", buf.String(), want)
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, versionOptions{format: "json", showHash: true}); err != nil {
		t.Fatalf("renderVersionJSON: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Tool != "vellum" || payload.GitCommit == "" || payload.BuildDate != "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
