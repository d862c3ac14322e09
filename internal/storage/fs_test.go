package storage

import (
	"io"
	"strings"
	"testing"
)

func TestFSStore_PutGet(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put("exercises/ex1/prompt.mp3", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "exercises/ex1/prompt.mp3" {
		t.Fatalf("canonical key = %q", key)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "audio-bytes" {
		t.Fatalf("got %q", b)
	}
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../outside", "a/../../outside"} {
		if _, err := s.Put(key, strings.NewReader("x")); err == nil {
			t.Fatalf("Put(%q) accepted", key)
		}
	}
}
