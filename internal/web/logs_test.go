package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogBuffer_JoinsPartialWrites(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("monitor: sta"))
	_, _ = b.Write([]byte("rted source=sim\nsecond"))
	lines, _ := b.Snapshot(0)
	if len(lines) != 1 || lines[0] != "monitor: started source=sim" {
		t.Fatalf("lines=%q", lines)
	}
	_, _ = b.Write([]byte(" line\r\n\n"))
	lines, _ = b.Snapshot(0)
	if len(lines) != 2 || lines[1] != "second line" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogBuffer_DropsOldest(t *testing.T) {
	b := NewLogBuffer(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		_, _ = b.Write([]byte(s + "\n"))
	}
	lines, dropped := b.Snapshot(10)
	if strings.Join(lines, ",") != "c,d,e" || dropped != 2 {
		t.Fatalf("lines=%q dropped=%d", lines, dropped)
	}
	lines, _ = b.Snapshot(2)
	if strings.Join(lines, ",") != "d,e" {
		t.Fatalf("tail=2 lines=%q", lines)
	}
}

func TestLogBuffer_AsLogOutput(t *testing.T) {
	b := NewLogBuffer(10)
	l := log.New(b, "", 0)
	l.Printf("alert: EMERGENCY type=%s", "fall")
	lines, _ := b.Snapshot(1)
	if len(lines) != 1 || lines[0] != "alert: EMERGENCY type=fall" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogsHandler(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("one\ntwo\n"))
	ts := httptest.NewServer(Handler(Deps{Logs: b}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/logs?tail=1")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	defer resp.Body.Close()
	var out LogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Lines) != 1 || out.Lines[0] != "two" {
		t.Fatalf("lines=%q", out.Lines)
	}

	txt, err := http.Get(ts.URL + "/api/logs?format=text")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	defer txt.Body.Close()
	body, _ := io.ReadAll(txt.Body)
	if string(body) != "one\ntwo\n" {
		t.Fatalf("body=%q", body)
	}

	bad, err := http.Get(ts.URL + "/api/logs?tail=0")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("code=%d want 400", bad.StatusCode)
	}
}
