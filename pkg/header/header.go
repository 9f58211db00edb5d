// Package header implements the storage engine's header page: a catalog of
// (index name, root page id) records living at a fixed page id, so every
// index in a catalog.Catalog can share one buffer pool instead of one pager
// per table. Wire format is a flat run of varint-encoded (name length, name
// bytes, root page id) records.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"

	"dinokv/pkg/buffer"
	"dinokv/pkg/config"
)

// PageID is the fixed page id the catalog's header page lives at.
const PageID int64 = 0

// ErrNotFound is returned by GetRootID, UpdateRecord, and DeleteRecord when
// no record is registered under the given name.
var ErrNotFound = errors.New("header: no record for given name")

type record struct {
	name   string
	rootPN int64
}

// Page is an in-memory decoding of the header page's records, kept in sync
// with page 0 on every mutation.
type Page struct {
	pool    *buffer.Pool
	records []record
}

// Open loads the header page's records. fresh must be true the first time a
// catalog is opened against a brand-new disk manager (with no pages yet
// allocated), so the header page is allocated and lands at page id 0;
// subsequent opens of the same catalog pass fresh=false to fetch the
// existing page instead.
func Open(pool *buffer.Pool, fresh bool) (*Page, error) {
	if fresh {
		pn, _, err := pool.NewPage()
		if err != nil {
			return nil, err
		}
		defer pool.UnpinPage(pn, true)
		if pn != PageID {
			return nil, fmt.Errorf("header: expected header page to land at id %d, got %d", PageID, pn)
		}
		return &Page{pool: pool}, nil
	}

	f, err := pool.FetchPage(PageID)
	if err != nil {
		return nil, err
	}
	defer pool.UnpinPage(PageID, false)
	pool.RLockPage(f)
	defer pool.RUnlockPage(f)
	recs, err := decode(f.Data())
	if err != nil {
		return nil, err
	}
	return &Page{pool: pool, records: recs}, nil
}

func decode(data []byte) ([]record, error) {
	var recs []record
	off := 0
	for off < len(data) {
		nameLen, n := binary.Varint(data[off:])
		if n <= 0 || nameLen <= 0 {
			break
		}
		off += n
		if off+int(nameLen) > len(data) {
			return nil, errors.New("header: corrupt record, name length overruns page")
		}
		name := string(data[off : off+int(nameLen)])
		off += int(nameLen)
		rootPN, n := binary.Varint(data[off:])
		if n <= 0 {
			return nil, errors.New("header: corrupt record, missing root page id")
		}
		off += n
		recs = append(recs, record{name: name, rootPN: rootPN})
	}
	return recs, nil
}

func encode(recs []record) ([]byte, error) {
	buf := make([]byte, 0, config.PageSize)
	tmp := make([]byte, binary.MaxVarintLen64)
	for _, r := range recs {
		n := binary.PutVarint(tmp, int64(len(r.name)))
		buf = append(buf, tmp[:n]...)
		buf = append(buf, r.name...)
		n = binary.PutVarint(tmp, r.rootPN)
		buf = append(buf, tmp[:n]...)
	}
	if int64(len(buf)) > config.PageSize {
		return nil, fmt.Errorf("header: catalog of %d records overflows the header page (%d > %d bytes)", len(recs), len(buf), config.PageSize)
	}
	return buf, nil
}

// GetRootID returns the root page id registered under name.
func (p *Page) GetRootID(name string) (int64, error) {
	for _, r := range p.records {
		if r.name == name {
			return r.rootPN, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names returns every index name currently registered, in no particular
// order.
func (p *Page) Names() []string {
	names := make([]string, len(p.records))
	for i, r := range p.records {
		names[i] = r.name
	}
	return names
}

// InsertRecord registers a new index's root page id. Returns an error if
// name is already registered, or if adding the record would overflow the
// header page -- this implementation does not chain onto additional pages.
func (p *Page) InsertRecord(name string, rootPN int64) error {
	for _, r := range p.records {
		if r.name == name {
			return fmt.Errorf("header: %q is already registered", name)
		}
	}
	updated := append(append([]record(nil), p.records...), record{name: name, rootPN: rootPN})
	if err := p.flush(updated); err != nil {
		return err
	}
	p.records = updated
	return nil
}

// UpdateRecord changes the root page id registered under name.
func (p *Page) UpdateRecord(name string, rootPN int64) error {
	updated := append([]record(nil), p.records...)
	for i, r := range updated {
		if r.name == name {
			updated[i].rootPN = rootPN
			if err := p.flush(updated); err != nil {
				return err
			}
			p.records = updated
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// DeleteRecord removes name's catalog entry.
func (p *Page) DeleteRecord(name string) error {
	updated := make([]record, 0, len(p.records))
	found := false
	for _, r := range p.records {
		if r.name == name {
			found = true
			continue
		}
		updated = append(updated, r)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := p.flush(updated); err != nil {
		return err
	}
	p.records = updated
	return nil
}

func (p *Page) flush(recs []record) error {
	data, err := encode(recs)
	if err != nil {
		return err
	}
	f, err := p.pool.FetchPage(PageID)
	if err != nil {
		return err
	}
	defer p.pool.UnpinPage(PageID, true)
	p.pool.WLockPage(f)
	defer p.pool.WUnlockPage(f)
	padded := make([]byte, config.PageSize)
	copy(padded, data)
	f.Update(padded, 0, config.PageSize)
	return nil
}
