package recordfile

import (
	"encoding/binary"

	"smfdb/internal/rc"
	"smfdb/internal/storage/bufferpool"
)

// overflowHeaderSize is the encoded size of the TEXT overflow page
// header: page_type, next_page, data_length, total_length.
const overflowHeaderSize = 16

// overflowPointerSize is the size of the 20-byte overflow pointer
// written at the start of a TEXT field slot.
const overflowPointerSize = 20

type overflowHeader struct {
	nextPage    uint32
	dataLength  uint32
	totalLength uint32 // only meaningful on the first page of a chain
}

func encodeOverflowHeader(buf []byte, h overflowHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(kindOverflow))
	binary.LittleEndian.PutUint32(buf[4:8], h.nextPage)
	binary.LittleEndian.PutUint32(buf[8:12], h.dataLength)
	binary.LittleEndian.PutUint32(buf[12:16], h.totalLength)
}

func decodeOverflowHeader(buf []byte) (overflowHeader, bool) {
	if pageKind(binary.LittleEndian.Uint32(buf[0:4])) != kindOverflow {
		return overflowHeader{}, false
	}
	return overflowHeader{
		nextPage:    binary.LittleEndian.Uint32(buf[4:8]),
		dataLength:  binary.LittleEndian.Uint32(buf[8:12]),
		totalLength: binary.LittleEndian.Uint32(buf[12:16]),
	}, true
}

// overflowPayloadCap is the number of TEXT payload bytes one overflow
// page can hold.
const overflowPayloadCap = bufferpool.PageSize - overflowHeaderSize

// overflowPointer is the 20-byte structure written at the start of a
// TEXT field slot when its content does not fit inline.
type overflowPointer struct {
	tableID          uint32
	firstOverflowPg  uint32
	headerSize       uint32
	totalTextLength  uint64
}

func encodeOverflowPointer(buf []byte, p overflowPointer) {
	binary.LittleEndian.PutUint32(buf[0:4], p.tableID)
	binary.LittleEndian.PutUint32(buf[4:8], p.firstOverflowPg)
	binary.LittleEndian.PutUint32(buf[8:12], p.headerSize)
	binary.LittleEndian.PutUint64(buf[12:20], p.totalTextLength)
}

func decodeOverflowPointer(buf []byte) overflowPointer {
	return overflowPointer{
		tableID:         binary.LittleEndian.Uint32(buf[0:4]),
		firstOverflowPg: binary.LittleEndian.Uint32(buf[4:8]),
		headerSize:      binary.LittleEndian.Uint32(buf[8:12]),
		totalTextLength: binary.LittleEndian.Uint64(buf[12:20]),
	}
}

// isOverflowPointer reports whether a field slot currently holds an
// overflow pointer rather than inline bytes: the leading u32 must equal
// tableID and the remaining pointer fields must validate.
func isOverflowPointer(slot []byte, tableID uint32) bool {
	if len(slot) < overflowPointerSize {
		return false
	}
	p := decodeOverflowPointer(slot)
	if p.tableID != tableID {
		return false
	}
	if p.headerSize != overflowHeaderSize {
		return false
	}
	if p.totalTextLength == 0 || p.totalTextLength > uint64(textMaxLength) {
		return false
	}
	return true
}

// textMaxLength mirrors types.TextMaxLength without importing the types
// package, keeping recordfile free of a dependency on the value model;
// the catalog/table layer above is responsible for enforcing the same
// bound before records ever reach here.
const textMaxLength = 65535

// writeOverflowChain allocates as many overflow pages as needed to hold
// tail (the portion of a TEXT value beyond the inline prefix), chains
// them via next_page, and returns the first page's number. total is the
// full TEXT value's length, stored only on the first page's header.
func writeOverflowChain(bp *bufferpool.BufferPool, tail []byte, total int) (uint32, error) {
	if len(tail) == 0 {
		return 0, rc.Errorf(rc.Internal, "writeOverflowChain called with empty tail")
	}

	type pending struct {
		fr   *bufferpool.Frame
		data []byte
	}
	var pages []pending
	remaining := tail
	for len(remaining) > 0 {
		fr, err := bp.AllocatePage()
		if err != nil {
			return 0, err
		}
		n := len(remaining)
		if n > overflowPayloadCap {
			n = overflowPayloadCap
		}
		pages = append(pages, pending{fr: fr, data: remaining[:n]})
		remaining = remaining[n:]
	}

	for i, p := range pages {
		var next uint32
		if i+1 < len(pages) {
			next = pages[i+1].fr.PageNum()
		}
		var tot uint32
		if i == 0 {
			tot = uint32(total)
		}
		h := overflowHeader{nextPage: next, dataLength: uint32(len(p.data)), totalLength: tot}
		buf := p.fr.Data()
		encodeOverflowHeader(buf, h)
		copy(buf[overflowHeaderSize:], p.data)
		p.fr.MarkDirty()
	}
	first := pages[0].fr.PageNum()
	for _, p := range pages {
		p.fr.Unpin()
	}
	return first, nil
}

// readOverflowChain reconstructs the full TEXT payload starting at
// firstPage.
func readOverflowChain(bp *bufferpool.BufferPool, firstPage uint32, totalLength int) ([]byte, error) {
	out := make([]byte, 0, totalLength)
	page := firstPage
	first := true
	for {
		fr, err := bp.GetThisPage(page)
		if err != nil {
			return nil, err
		}
		fr.ReadLatch()
		h, ok := decodeOverflowHeader(fr.Data())
		if !ok {
			fr.ReadUnlatch()
			fr.Unpin()
			return nil, rc.Errorf(rc.Internal, "page %d is not a TEXT overflow page", page)
		}
		data := make([]byte, h.dataLength)
		copy(data, fr.Data()[overflowHeaderSize:overflowHeaderSize+int(h.dataLength)])
		fr.ReadUnlatch()
		fr.Unpin()
		out = append(out, data...)
		_ = first
		first = false
		if h.nextPage == 0 {
			break
		}
		page = h.nextPage
	}
	return out, nil
}

// freeOverflowChain walks firstPage's next_page chain, handing each
// page number to free(), used when deleting a record or replacing its
// TEXT value.
func freeOverflowChain(bp *bufferpool.BufferPool, firstPage uint32, free func(uint32)) error {
	page := firstPage
	for page != 0 {
		fr, err := bp.GetThisPage(page)
		if err != nil {
			return err
		}
		fr.ReadLatch()
		h, ok := decodeOverflowHeader(fr.Data())
		fr.ReadUnlatch()
		fr.Unpin()
		if !ok {
			return rc.Errorf(rc.Internal, "page %d is not a TEXT overflow page", page)
		}
		free(page)
		page = h.nextPage
	}
	return nil
}
