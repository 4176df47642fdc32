// Package pager owns the database file: it maps it into fixed-size
// pages, caches them in memory, and writes them back on close. It
// implements spec §4.1 verbatim, generalized from the teacher's
// single hardcoded TableMaxPages into a configurable static bound.
package pager

import (
	"fmt"
	"io"
	"os"

	"lithdb/enginerr"
)

const PageSize = 4096

// DefaultMaxPages is the static upper bound on addressable pages used
// when the caller does not pass one to Open. Spec §4.1: "out-of-bounds
// page ids (above a static maximum) are fatal."
const DefaultMaxPages = 1 << 20

// Page is a fixed-size, in-memory copy of one page of the database
// file, keyed by its page number.
type Page struct {
	Data    [PageSize]byte
	PageNum uint32
	Dirty   bool
}

// Pager presents a random-access array of pages backed by a single
// file. It holds no locks: spec §5 assumes exactly one caller at a
// time.
type Pager struct {
	file     *os.File
	pages    []*Page // index = page number; nil = not cached
	numPages uint32
	maxPages uint32

	// origNumPages is numPages as computed from the file's on-disk
	// length at Open time, before any GetPage call (including a WAL
	// replay's) can grow it. It lets a caller distinguish "brand-new
	// database file" from "existing file whose page 0 a WAL replay
	// happened to touch first".
	origNumPages uint32
}

// Open opens or creates the file at path and computes NumPages from
// its length. A length that isn't a multiple of PageSize is treated
// as corruption and reported as Fatal.
func Open(path string, maxPages uint32) (*Pager, error) {
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, enginerr.NewFatal("open database file", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, enginerr.NewFatal("stat database file", err)
	}
	size := fi.Size()
	if size%PageSize != 0 {
		f.Close()
		return nil, enginerr.NewFatal(fmt.Sprintf("file length %d is not a multiple of page size %d", size, PageSize), nil)
	}
	numPages := uint32(size / PageSize)
	return &Pager{
		file:         f,
		pages:        make([]*Page, numPages),
		numPages:     numPages,
		maxPages:     maxPages,
		origNumPages: numPages,
	}, nil
}

func (p *Pager) NumPages() uint32 { return p.numPages }

// OriginalNumPages is the page count the file had at Open time, before
// any GetPage call could grow it. Unlike NumPages, it does not count
// pages that a WAL replay has since written into the cache.
func (p *Pager) OriginalNumPages() uint32 { return p.origNumPages }

// GetPage returns the cached buffer for pageNum, loading it from disk
// on first access. Addressing a page at or beyond NumPages grows the
// file's logical extent and hands back a zeroed buffer the caller
// must initialize (spec §4.1) — this is how the catalog claims page 0
// and how a freshly allocated page is first populated.
func (p *Pager) GetPage(pageNum uint32) (*Page, error) {
	if pageNum >= p.maxPages {
		return nil, enginerr.NewFatal(fmt.Sprintf("page %d exceeds static maximum %d", pageNum, p.maxPages), nil)
	}

	if pageNum < uint32(len(p.pages)) && p.pages[pageNum] != nil {
		return p.pages[pageNum], nil
	}

	pg := &Page{PageNum: pageNum}
	if pageNum < p.numPages {
		if err := p.readPage(pageNum, pg); err != nil {
			return nil, enginerr.NewFatal(fmt.Sprintf("read page %d", pageNum), err)
		}
	} else {
		// Growing past the current extent: zeroed buffer, caller initializes.
		p.numPages = pageNum + 1
		pg.Dirty = true
	}
	p.cache(pg)
	return pg, nil
}

func (p *Pager) readPage(pageNum uint32, pg *Page) error {
	off := int64(pageNum) * PageSize
	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(p.file, pg.Data[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	_ = n
	return nil
}

func (p *Pager) cache(pg *Page) {
	for uint32(len(p.pages)) <= pg.PageNum {
		p.pages = append(p.pages, nil)
	}
	p.pages[pg.PageNum] = pg
}

// AllocatePage returns the next unused page number and advances
// NumPages. There is no free list; pages are append-only (spec §4.1).
func (p *Pager) AllocatePage() (uint32, error) {
	if p.numPages >= p.maxPages {
		return 0, enginerr.NewFatal(fmt.Sprintf("pager exhausted static maximum of %d pages", p.maxPages), nil)
	}
	pageNum := p.numPages
	p.numPages++
	pg := &Page{PageNum: pageNum, Dirty: true}
	p.cache(pg)
	return pageNum, nil
}

// Flush writes the cached buffer for pageNum at its file offset, if
// cached and dirty.
func (p *Pager) Flush(pageNum uint32) error {
	if pageNum >= uint32(len(p.pages)) || p.pages[pageNum] == nil {
		return nil
	}
	pg := p.pages[pageNum]
	if !pg.Dirty {
		return nil
	}
	off := int64(pageNum) * PageSize
	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return enginerr.NewFatal(fmt.Sprintf("seek page %d", pageNum), err)
	}
	if _, err := p.file.Write(pg.Data[:]); err != nil {
		return enginerr.NewFatal(fmt.Sprintf("write page %d", pageNum), err)
	}
	pg.Dirty = false
	return nil
}

// DirtyPageNums returns the page numbers of every currently cached,
// unflushed page, in ascending order. The WAL uses this to decide
// which pages to physically log after a mutating operation.
func (p *Pager) DirtyPageNums() []uint32 {
	var nums []uint32
	for i, pg := range p.pages {
		if pg != nil && pg.Dirty {
			nums = append(nums, uint32(i))
		}
	}
	return nums
}

// FlushAll flushes every cached page and fsyncs the file.
func (p *Pager) FlushAll() error {
	for i := range p.pages {
		if p.pages[i] != nil && p.pages[i].Dirty {
			if err := p.Flush(uint32(i)); err != nil {
				return err
			}
		}
	}
	if err := p.file.Sync(); err != nil {
		return enginerr.NewFatal("sync database file", err)
	}
	return nil
}

// Close flushes every cached page and closes the file, releasing the
// cache along every exit path.
func (p *Pager) Close() error {
	if err := p.FlushAll(); err != nil {
		p.file.Close()
		return err
	}
	p.pages = nil
	return p.file.Close()
}
