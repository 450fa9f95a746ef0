package chunkstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const keyWidth = 4

func key(n byte) []byte { return []byte{0, 0, 0, n} }

func TestWriteChunk_ReadRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, keyWidth, true)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	entries := []Entry{
		{Key: key(3), Value: []byte("three")},
		{Key: key(1), Value: []byte("one")},
		{Key: key(2), Value: []byte("two")},
	}
	if err := s.WriteChunk(7, entries); err != nil {
		t.Fatalf("write chunk failed: %v", err)
	}

	for _, want := range entries {
		got, ok, err := s.ReadRecord(7, want.Key)
		if err != nil || !ok {
			t.Fatalf("read record %v failed: ok=%v err=%v", want.Key, ok, err)
		}
		if !bytes.Equal(got, want.Value) {
			t.Errorf("value mismatch for %v: got %q want %q", want.Key, got, want.Value)
		}
	}

	if _, ok, err := s.ReadRecord(7, key(99)); err != nil || ok {
		t.Errorf("expected missing key to return false, got ok=%v err=%v", ok, err)
	}
}

func TestWriteChunk_DedupesLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	entries := []Entry{
		{Key: key(1), Value: []byte("first")},
		{Key: key(1), Value: []byte("second")},
	}
	if err := s.WriteChunk(0, entries); err != nil {
		t.Fatalf("write chunk failed: %v", err)
	}

	got, ok, err := s.ReadRecord(0, key(1))
	if err != nil || !ok {
		t.Fatalf("read failed: ok=%v err=%v", ok, err)
	}
	if string(got) != "second" {
		t.Errorf("expected last write to win, got %q", got)
	}
}

func TestWalkChunk_AscendingOrder(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, true)

	entries := []Entry{
		{Key: key(5), Value: []byte("e")},
		{Key: key(1), Value: []byte("a")},
		{Key: key(3), Value: []byte("c")},
	}
	if err := s.WriteChunk(0, entries); err != nil {
		t.Fatalf("write chunk failed: %v", err)
	}

	var order []byte
	err := s.WalkChunk(0, func(k, v []byte) (bool, error) {
		order = append(order, k[3])
		return true, nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	if !bytes.Equal(order, []byte{1, 3, 5}) {
		t.Errorf("expected ascending order [1 3 5], got %v", order)
	}
}

func TestWalkChunk_EarlyTermination(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	_ = s.WriteChunk(0, []Entry{
		{Key: key(1), Value: []byte("a")},
		{Key: key(2), Value: []byte("b")},
		{Key: key(3), Value: []byte("c")},
	})

	visited := 0
	_ = s.WalkChunk(0, func(k, v []byte) (bool, error) {
		visited++
		return visited < 2, nil
	})
	if visited != 2 {
		t.Errorf("expected walk to stop after 2 entries, visited %d", visited)
	}
}

func TestDeleteChunk_Idempotent(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)
	_ = s.WriteChunk(0, []Entry{{Key: key(1), Value: []byte("a")}})

	if err := s.DeleteChunk(0); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := s.DeleteChunk(0); err != nil {
		t.Fatalf("second delete should be a no-op, got: %v", err)
	}
	if s.HasChunk(0) {
		t.Error("expected chunk to be gone")
	}
}

func TestCleanStaleTemp_RemovesOrphanedTmp(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	if err := os.WriteFile(filepath.Join(dir, "bucket-5.tmp"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := s.CleanStaleTemp(); err != nil {
		t.Fatalf("clean stale temp failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bucket-5.tmp")); !os.IsNotExist(err) {
		t.Error("expected stale .tmp file to be removed")
	}
}

func TestCleanStaleTemp_PreservesPriorChunk(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	if err := s.WriteChunk(5, []Entry{{Key: key(1), Value: []byte("pre-crash")}}); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bucket-5.tmp"), []byte("in-flight"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := s.CleanStaleTemp(); err != nil {
		t.Fatalf("clean stale temp failed: %v", err)
	}

	got, ok, err := s.ReadRecord(5, key(1))
	if err != nil || !ok || string(got) != "pre-crash" {
		t.Errorf("expected prior chunk to remain authoritative, got ok=%v val=%q err=%v", ok, got, err)
	}
}

func TestListBuckets(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	for _, id := range []uint64{5, 1, 3} {
		if err := s.WriteChunk(id, []Entry{{Key: key(1), Value: []byte("v")}}); err != nil {
			t.Fatalf("write bucket %d failed: %v", id, err)
		}
	}

	buckets, err := s.ListBuckets()
	if err != nil {
		t.Fatalf("list buckets failed: %v", err)
	}
	want := []uint64{1, 3, 5}
	if len(buckets) != len(want) {
		t.Fatalf("expected %v, got %v", want, buckets)
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Errorf("expected %v, got %v", want, buckets)
			break
		}
	}
}

func TestReadRecord_CorruptedChunk(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	if err := os.WriteFile(filepath.Join(dir, "bucket-0.chk"), []byte("not a chunk"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, _, err := s.ReadRecord(0, key(1))
	if err == nil {
		t.Fatal("expected CorruptedChunk error")
	}
}

func TestWriteChunk_NoCompression(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, keyWidth, false)

	if err := s.WriteChunk(1, []Entry{{Key: key(1), Value: []byte("uncompressed")}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, ok, err := s.ReadRecord(1, key(1))
	if err != nil || !ok || string(got) != "uncompressed" {
		t.Errorf("expected roundtrip without compression, got ok=%v val=%q err=%v", ok, got, err)
	}
}
