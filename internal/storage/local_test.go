package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return store, dir
}

func TestSaveUploadAndRead(t *testing.T) {
	store, _ := newTestStore(t)
	content := []byte("%PDF-1.4\nfake document bytes")

	name, err := store.SaveUpload(content, ".pdf")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(name) != ".pdf" {
		t.Errorf("stored name = %q, want .pdf extension", name)
	}

	got, err := store.Read(name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("read bytes differ from saved bytes")
	}

	other, err := store.SaveUpload(content, ".pdf")
	if err != nil {
		t.Fatal(err)
	}
	if other == name {
		t.Error("two uploads collided on the same stored name")
	}
}

func TestReadStripsDirectoryComponents(t *testing.T) {
	store, dir := newTestStore(t)
	if err := store.Write("doc.pdf", []byte("inside")); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(filepath.Dir(dir), "outside.pdf")
	if err := os.WriteFile(outside, []byte("outside"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Path components in stored names are ignored, only the base is read.
	got, err := store.Read("../doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "inside" {
		t.Errorf("Read escaped the store: %q", got)
	}
	if _, err := store.Read("../outside.pdf"); err == nil {
		t.Error("Read reached a file outside the store")
	}
}

func TestRemove(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Write("doc.pdf", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove("doc.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read("doc.pdf"); err == nil {
		t.Error("file still readable after Remove")
	}
	if err := store.Remove("doc.pdf"); err == nil {
		t.Error("removing a missing file did not error")
	}
}

func TestArchiveRejected(t *testing.T) {
	store, dir := newTestStore(t)
	content := []byte("original bytes")
	if err := store.Write("169-1.pdf", content); err != nil {
		t.Fatal(err)
	}

	if err := store.ArchiveRejected("169-1.pdf", "Lease Agreement.pdf"); err != nil {
		t.Fatal(err)
	}
	archived, err := os.ReadFile(filepath.Join(dir, "rejected", "rejected_Lease Agreement.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(archived, content) {
		t.Error("archived bytes differ from original")
	}

	// Re-archiving the same document overwrites in place.
	if err := store.ArchiveRejected("169-1.pdf", "Lease Agreement.pdf"); err != nil {
		t.Fatalf("second archive failed: %v", err)
	}

	if err := store.ArchiveRejected("missing.pdf", "x.pdf"); err == nil {
		t.Error("archiving a missing original did not error")
	}
}
