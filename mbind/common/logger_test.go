package common

import (
	"fmt"
	"testing"
)

func TestLogger_Msg(t *testing.T) {
	log := NewLog()
	log.Msg("test message %d", 1)

	if len(log.Entries) != 1 {
		t.Fatal("Expected 1 entry")
	}
	if log.Entries[0].Msg != "test message 1" {
		t.Errorf("Wrong message: %s", log.Entries[0].Msg)
	}
	if log.Entries[0].IsError || log.Entries[0].IsWarning {
		t.Error("Expected plain message")
	}
}

func TestLogger_Levels(t *testing.T) {
	log := NewLog()
	log.Dbg("not kept")
	log.Warn("wrong stick %s", "js2")
	log.Err("bad %d", 3)

	entries := log.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if !entries[0].IsWarning || entries[0].Msg != "wrong stick js2" {
		t.Errorf("Unexpected warning entry %+v", entries[0])
	}
	if !entries[1].IsError || entries[1].Msg != "bad 3" {
		t.Errorf("Unexpected error entry %+v", entries[1])
	}

	log.Reset()
	if len(log.Snapshot()) != 0 {
		t.Error("Expected no entries after Reset")
	}
}

func TestLogger_KeepsLatestEntries(t *testing.T) {
	log := NewLog()
	for i := 0; i < MaxLogEntries+20; i++ {
		log.Msg("entry %d", i)
	}
	entries := log.Snapshot()
	if len(entries) != MaxLogEntries {
		t.Fatalf("Expected %d entries, got %d", MaxLogEntries, len(entries))
	}
	if entries[0].Msg != "entry 20" {
		t.Errorf("Oldest entry is %q", entries[0].Msg)
	}
	if last := entries[len(entries)-1].Msg; last != fmt.Sprintf("entry %d", MaxLogEntries+19) {
		t.Errorf("Newest entry is %q", last)
	}
}

func TestLogger_Fatal(t *testing.T) {
	log := NewLog()
	var got string
	log.FatalFunc = func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	}
	log.Fatal("config %s", "missing")
	if got != "config missing" {
		t.Errorf("FatalFunc got %q", got)
	}
}
