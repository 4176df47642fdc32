package pager

import (
	"os"
	"path/filepath"
	"testing"
)

// Test opening an empty pager file.
func TestOpenPagerEmptyFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_empty_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.NumPages() != 0 {
		t.Errorf("expected 0 pages, got %d", p.NumPages())
	}
}

// Spec §4.1: addressing a page at/beyond NumPages grows the logical
// extent and returns a zeroed buffer instead of erroring.
func TestGetPageGrowsPastEOF(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_oob_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pg, err := p.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) on empty pager: %v", err)
	}
	if p.NumPages() != 1 {
		t.Errorf("expected NumPages=1 after growing, got %d", p.NumPages())
	}
	for i, b := range pg.Data {
		if b != 0 {
			t.Fatalf("expected zeroed buffer, byte %d = 0x%X", i, b)
		}
	}
}

// A page id above the static maximum is fatal (spec §4.1).
func TestGetPageOutOfStaticBound(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_static_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.GetPage(10); err == nil {
		t.Errorf("expected error for page above static maximum")
	}
}

// Test AllocatePage, modifying, flushing, and verifying on-disk content.
func TestAllocateAndFlushPage(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_alloc_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pgNum, err := p.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if pgNum != 0 {
		t.Errorf("expected pgNum=0, got %d", pgNum)
	}

	pg, err := p.GetPage(pgNum)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if !pg.Dirty {
		t.Errorf("expected allocated page to be dirty")
	}

	pg.Data[0] = 0xAB
	pg.Data[PageSize-1] = 0xCD
	pg.Dirty = true

	if err := p.Flush(pgNum); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != PageSize {
		t.Fatalf("expected file length %d, got %d", PageSize, len(data))
	}
	if data[0] != 0xAB || data[PageSize-1] != 0xCD {
		t.Errorf("unexpected on-disk content: first=0x%X last=0x%X", data[0], data[PageSize-1])
	}
	if pg.Dirty {
		t.Errorf("expected page dirty=false after flush")
	}
}

// Test loading an existing full page from disk.
func TestLoadExistingPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exist.db")

	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = 0x01
	}
	if err := os.WriteFile(path, buf, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.NumPages() != 1 {
		t.Errorf("expected 1 page, got %d", p.NumPages())
	}
	pg, err := p.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if pg.Dirty {
		t.Errorf("expected loaded page dirty=false")
	}
	if pg.Data[0] != 0x01 || pg.Data[PageSize-1] != 0x01 {
		t.Errorf("unexpected data in loaded page: first=0x%X last=0x%X", pg.Data[0], pg.Data[PageSize-1])
	}
}

// Spec §4.1: file length not a multiple of PAGE_SIZE is corruption.
func TestRejectsCorruptFileLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	if err := os.WriteFile(path, make([]byte, PageSize+10), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path, 0); err == nil {
		t.Errorf("expected error opening a file whose length isn't a multiple of PageSize")
	}
}

// Test that GetPage returns the same cached instance after Allocate.
func TestGetPageAfterAllocate(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_afteralloc_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pgNum, err := p.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	first, err := p.GetPage(pgNum)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	retrieved, err := p.GetPage(pgNum)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if first != retrieved {
		t.Errorf("GetPage returned a different page instance")
	}
}

func TestAllocatePageExhaustsStaticMaximum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bounded.db")

	p, err := Open(path, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.AllocatePage(); err != nil {
		t.Fatalf("AllocatePage 1: %v", err)
	}
	if _, err := p.AllocatePage(); err != nil {
		t.Fatalf("AllocatePage 2: %v", err)
	}
	if _, err := p.AllocatePage(); err == nil {
		t.Errorf("expected error once static maximum is exhausted")
	}
}
