package recordfile

import (
	"sync"

	"smfdb/internal/rc"
	"smfdb/internal/storage/bufferpool"
)

// inlineTextCapacity mirrors types.InlineTextCapacity; kept as a local
// constant so recordfile does not depend on the value-model package.
const inlineTextCapacity = 768

// RID identifies a record by page number and slot number within that
// page.
type RID struct {
	PageNum uint32
	Slot    uint32
}

// TextField describes one TEXT column's fixed slot within a record, so
// RecordFileHandler can detect and chase overflow pointers without
// depending on the catalog/types packages.
type TextField struct {
	Offset int
	Length int // fixed slot width L; inline prefix is L - overflowPointerSize bytes
}

// Schema is the subset of table metadata RecordFileHandler needs:
// the fixed record size, whether storage is PAX, and which byte ranges
// hold TEXT columns.
type Schema struct {
	RecordSize int
	ColumnNum  int
	PAX        bool
	TextFields []TextField
}

// RecordFileHandler manages one heap file's record pages and TEXT
// overflow pages over a shared buffer pool.
type RecordFileHandler struct {
	bp      *bufferpool.BufferPool
	tableID uint32
	schema  Schema

	// setsMu protects freePages/overflowPages. Callers always acquire
	// setsMu AFTER releasing any page latch, and acquire a page latch
	// for insert BEFORE taking setsMu, so the two orders never form a
	// cycle.
	setsMu        sync.Mutex
	freePages     map[uint32]struct{}
	overflowPages map[uint32]struct{}
}

// Open builds a RecordFileHandler over bp, scanning every allocated
// page once to classify it as a record page or TEXT overflow page and
// to seed the free-pages set.
func Open(bp *bufferpool.BufferPool, tableID uint32, schema Schema) (*RecordFileHandler, error) {
	h := &RecordFileHandler{
		bp:            bp,
		tableID:       tableID,
		schema:        schema,
		freePages:     make(map[uint32]struct{}),
		overflowPages: make(map[uint32]struct{}),
	}

	it := bp.Pages()
	for {
		pn, ok := it.Next()
		if !ok {
			break
		}
		fr, err := bp.GetThisPage(pn)
		if err != nil {
			return nil, err
		}
		fr.ReadLatch()
		if _, isOverflow := decodeOverflowHeader(fr.Data()); isOverflow {
			fr.ReadUnlatch()
			fr.Unpin()
			h.overflowPages[pn] = struct{}{}
			continue
		}
		ph := decodePageHeader(fr.Data())
		if ph.RecordNum < ph.RecordCapacity {
			h.freePages[pn] = struct{}{}
		}
		fr.ReadUnlatch()
		fr.Unpin()
	}
	return h, nil
}

// Insert stores data (length must equal schema.RecordSize) and returns
// its RID. texts carries the full logical content of each TEXT column
// in schema.TextFields, indexed by position; a field whose logical
// value fits within its slot may be omitted, letting the caller rely
// on the inline bytes already present in data. A field whose logical
// value exceeds its slot MUST be supplied here — data's slot for it
// only ever holds, at most, the pointer and inline prefix, never the
// full value.
func (h *RecordFileHandler) Insert(data []byte, texts map[int]string) (RID, error) {
	if len(data) != h.schema.RecordSize {
		return RID{}, rc.Errorf(rc.InvalidArgument, "record length %d does not match schema record size %d", len(data), h.schema.RecordSize)
	}

	prepared, err := h.preprocessTextFields(data, texts)
	if err != nil {
		return RID{}, err
	}

	for {
		pn, ok := h.takeFreePage()
		if !ok {
			fr, err := h.bp.AllocatePage()
			if err != nil {
				return RID{}, err
			}
			initEmptyPage(fr, h.schema.RecordSize, align8(h.schema.RecordSize), h.schema.ColumnNum, h.schema.PAX)
			pn = fr.PageNum()
			h.addFreePage(pn)
			fr.Unpin()
		}

		fr, err := h.bp.GetThisPage(pn)
		if err != nil {
			return RID{}, err
		}
		fr.WriteLatch()
		ph := decodePageHeader(fr.Data())
		bitmap := pageBitmap(fr.Data(), ph)
		slot := firstClearBit(bitmap, int(ph.RecordCapacity))
		if slot < 0 {
			// Page filled between takeFreePage and the write latch;
			// drop it from free_pages and retry with another page.
			fr.WriteUnlatch()
			fr.Unpin()
			h.removeFreePage(pn)
			continue
		}

		bitmapSet(bitmap, slot)
		ph.RecordNum++
		ph.encode(fr.Data())
		off := slotOffset(ph, slot)
		copy(fr.Data()[off:off+h.schema.RecordSize], prepared)
		fr.MarkDirty()
		full := ph.RecordNum >= ph.RecordCapacity
		fr.WriteUnlatch()
		fr.Unpin()
		if full {
			h.removeFreePage(pn)
		}
		return RID{PageNum: pn, Slot: uint32(slot)}, nil
	}
}

// Get reads the record at rid. The returned raw buffer carries each
// TEXT field's pointer/inline-prefix slot exactly as stored; texts
// holds, for every TEXT field whose value overflowed its slot, that
// field's full logical content keyed by position in schema.TextFields.
// A field absent from texts fits entirely within its slot inline — the
// caller reads it directly out of raw.
func (h *RecordFileHandler) Get(rid RID) (raw []byte, texts map[int]string, err error) {
	fr, err := h.bp.GetThisPage(rid.PageNum)
	if err != nil {
		return nil, nil, err
	}
	defer fr.Unpin()
	fr.ReadLatch()
	ph := decodePageHeader(fr.Data())
	if rid.Slot >= ph.RecordCapacity {
		fr.ReadUnlatch()
		return nil, nil, rc.Errorf(rc.RecordInvalidRID, "slot %d out of range for page %d", rid.Slot, rid.PageNum)
	}
	bitmap := pageBitmap(fr.Data(), ph)
	if !bitmapGet(bitmap, int(rid.Slot)) {
		fr.ReadUnlatch()
		return nil, nil, rc.Errorf(rc.RecordNotExist, "rid %+v is not live", rid)
	}
	off := slotOffset(ph, int(rid.Slot))
	raw = make([]byte, h.schema.RecordSize)
	copy(raw, fr.Data()[off:off+h.schema.RecordSize])
	fr.ReadUnlatch()

	texts, err = h.extractTextFields(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, texts, nil
}

// Delete removes the record at rid, freeing any TEXT overflow chain it
// owns.
func (h *RecordFileHandler) Delete(rid RID) error {
	raw, err := h.rawSlot(rid)
	if err != nil {
		return err
	}
	for _, tf := range h.schema.TextFields {
		slot := raw[tf.Offset : tf.Offset+tf.Length]
		if isOverflowPointer(slot, h.tableID) {
			p := decodeOverflowPointer(slot)
			if err := freeOverflowChain(h.bp, p.firstOverflowPg, h.freeOverflowPage); err != nil {
				return err
			}
		}
	}

	fr, err := h.bp.GetThisPage(rid.PageNum)
	if err != nil {
		return err
	}
	fr.WriteLatch()
	ph := decodePageHeader(fr.Data())
	bitmap := pageBitmap(fr.Data(), ph)
	bitmapClear(bitmap, int(rid.Slot))
	ph.RecordNum--
	ph.encode(fr.Data())
	fr.MarkDirty()
	fr.WriteUnlatch()
	fr.Unpin()
	h.addFreePage(rid.PageNum)
	return nil
}

// updateRecordBytes overwrites rid's raw slot with data (already
// preprocessed for TEXT overflow by the caller) without touching
// indexes; the table engine layer (C5) is responsible for index
// maintenance around this call.
func (h *RecordFileHandler) updateRecordBytes(rid RID, data []byte) error {
	fr, err := h.bp.GetThisPage(rid.PageNum)
	if err != nil {
		return err
	}
	defer fr.Unpin()
	fr.WriteLatch()
	defer fr.WriteUnlatch()
	ph := decodePageHeader(fr.Data())
	bitmap := pageBitmap(fr.Data(), ph)
	if !bitmapGet(bitmap, int(rid.Slot)) {
		return rc.Errorf(rc.RecordNotExist, "rid %+v is not live", rid)
	}
	off := slotOffset(ph, int(rid.Slot))
	copy(fr.Data()[off:off+h.schema.RecordSize], data)
	fr.MarkDirty()
	return nil
}

// Update replaces the record at rid with newData, releasing the old
// TEXT overflow chain and writing a new one as needed. texts carries
// each TEXT column's full logical content exactly as Insert does.
func (h *RecordFileHandler) Update(rid RID, newData []byte, texts map[int]string) error {
	if len(newData) != h.schema.RecordSize {
		return rc.Errorf(rc.InvalidArgument, "record length %d does not match schema record size %d", len(newData), h.schema.RecordSize)
	}
	old, err := h.rawSlot(rid)
	if err != nil {
		return err
	}
	for _, tf := range h.schema.TextFields {
		slot := old[tf.Offset : tf.Offset+tf.Length]
		if isOverflowPointer(slot, h.tableID) {
			p := decodeOverflowPointer(slot)
			if err := freeOverflowChain(h.bp, p.firstOverflowPg, h.freeOverflowPage); err != nil {
				return err
			}
		}
	}
	prepared, err := h.preprocessTextFields(newData, texts)
	if err != nil {
		return err
	}
	return h.updateRecordBytes(rid, prepared)
}

// Visit reads rid, passes its raw buffer and any overflowed TEXT
// content to fn, and writes both back unchanged (aside from whatever
// fn mutated in place) if fn returns true.
func (h *RecordFileHandler) Visit(rid RID, fn func(record []byte, texts map[int]string) bool) error {
	rec, texts, err := h.Get(rid)
	if err != nil {
		return err
	}
	if fn(rec, texts) {
		return h.Update(rid, rec, texts)
	}
	return nil
}

func (h *RecordFileHandler) rawSlot(rid RID) ([]byte, error) {
	fr, err := h.bp.GetThisPage(rid.PageNum)
	if err != nil {
		return nil, err
	}
	defer fr.Unpin()
	fr.ReadLatch()
	defer fr.ReadUnlatch()
	ph := decodePageHeader(fr.Data())
	if rid.Slot >= ph.RecordCapacity {
		return nil, rc.Errorf(rc.RecordInvalidRID, "slot %d out of range for page %d", rid.Slot, rid.PageNum)
	}
	bitmap := pageBitmap(fr.Data(), ph)
	if !bitmapGet(bitmap, int(rid.Slot)) {
		return nil, rc.Errorf(rc.RecordNotExist, "rid %+v is not live", rid)
	}
	off := slotOffset(ph, int(rid.Slot))
	raw := make([]byte, h.schema.RecordSize)
	copy(raw, fr.Data()[off:off+h.schema.RecordSize])
	return raw, nil
}

func (h *RecordFileHandler) takeFreePage() (uint32, bool) {
	h.setsMu.Lock()
	defer h.setsMu.Unlock()
	for pn := range h.freePages {
		return pn, true
	}
	return 0, false
}

func (h *RecordFileHandler) addFreePage(pn uint32) {
	h.setsMu.Lock()
	h.freePages[pn] = struct{}{}
	h.setsMu.Unlock()
}

func (h *RecordFileHandler) removeFreePage(pn uint32) {
	h.setsMu.Lock()
	delete(h.freePages, pn)
	h.setsMu.Unlock()
}

func (h *RecordFileHandler) freeOverflowPage(pn uint32) {
	h.setsMu.Lock()
	delete(h.overflowPages, pn)
	h.setsMu.Unlock()
	_ = h.bp.DisposePage(pn)
}

// preprocessTextFields rewrites oversize TEXT fields as overflow
// pointers, returning a new buffer; data is not mutated in place. For
// field index i (position within schema.TextFields), texts[i] if
// present is the field's authoritative full content; otherwise the
// slot's existing inline bytes are used as-is (the field is assumed to
// already fit, or the caller is intentionally leaving it untouched).
func (h *RecordFileHandler) preprocessTextFields(data []byte, texts map[int]string) ([]byte, error) {
	if len(h.schema.TextFields) == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	out := make([]byte, len(data))
	copy(out, data)

	for i, tf := range h.schema.TextFields {
		slot := out[tf.Offset : tf.Offset+tf.Length]
		var content []byte
		if v, ok := texts[i]; ok {
			content = []byte(v)
		} else {
			content = trimTrailingZero(slot)
		}
		if len(content) > textMaxLength {
			return nil, rc.Errorf(rc.InvalidArgument, "TEXT value of length %d exceeds max %d", len(content), textMaxLength)
		}
		inlineCap := tf.Length
		if inlineCap > inlineTextCapacity {
			inlineCap = inlineTextCapacity
		}
		if len(content) <= inlineCap {
			for i := range slot {
				slot[i] = 0
			}
			copy(slot, content)
			continue
		}

		tail := content[inlineCap-overflowPointerSize:]
		firstPage, err := writeOverflowChain(h.bp, tail, len(content))
		if err != nil {
			return nil, err
		}
		h.setsMu.Lock()
		h.overflowPages[firstPage] = struct{}{}
		h.setsMu.Unlock()

		ptr := overflowPointer{
			tableID:         h.tableID,
			firstOverflowPg: firstPage,
			headerSize:      overflowHeaderSize,
			totalTextLength: uint64(len(content)),
		}
		for i := range slot {
			slot[i] = 0
		}
		encodeOverflowPointer(slot, ptr)
		copy(slot[overflowPointerSize:overflowPointerSize+inlineCap-overflowPointerSize], content[:inlineCap-overflowPointerSize])
	}
	return out, nil
}

// extractTextFields reports, for each TEXT field currently holding an
// overflow pointer, that field's full logical content reconstructed
// from its overflow chain. raw is read-only here; fields that fit
// inline are simply absent from the result.
func (h *RecordFileHandler) extractTextFields(raw []byte) (map[int]string, error) {
	var out map[int]string
	for i, tf := range h.schema.TextFields {
		slot := raw[tf.Offset : tf.Offset+tf.Length]
		if !isOverflowPointer(slot, h.tableID) {
			continue
		}
		p := decodeOverflowPointer(slot)
		inlineCap := tf.Length
		if inlineCap > inlineTextCapacity {
			inlineCap = inlineTextCapacity
		}
		prefixLen := inlineCap - overflowPointerSize
		prefix := make([]byte, prefixLen)
		copy(prefix, slot[overflowPointerSize:overflowPointerSize+prefixLen])

		tail, err := readOverflowChain(h.bp, p.firstOverflowPg, int(p.totalTextLength)-prefixLen)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make(map[int]string)
		}
		out[i] = string(append(prefix, tail...))
	}
	return out, nil
}

func trimTrailingZero(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return append([]byte(nil), b[:i]...)
}

// Scanner yields RIDs for every live record in monotonic page order.
type Scanner struct {
	h       *RecordFileHandler
	pageIt  *bufferpool.PageIterator
	curPage uint32
	curPH   *PageHeader
	curBmp  []byte
	slot    int
	started bool
}

func (h *RecordFileHandler) NewScanner() *Scanner {
	return &Scanner{h: h, pageIt: h.bp.Pages()}
}

// Next advances to the next live record and returns its RID, or
// (RID{}, false, nil) at end of file.
func (s *Scanner) Next() (RID, bool, error) {
	for {
		if s.curPH == nil {
			pn, ok := s.pageIt.Next()
			if !ok {
				return RID{}, false, nil
			}
			fr, err := s.h.bp.GetThisPage(pn)
			if err != nil {
				return RID{}, false, err
			}
			fr.ReadLatch()
			if _, isOverflow := decodeOverflowHeader(fr.Data()); isOverflow {
				fr.ReadUnlatch()
				fr.Unpin()
				continue
			}
			ph := decodePageHeader(fr.Data())
			bmp := append([]byte(nil), pageBitmap(fr.Data(), ph)...)
			fr.ReadUnlatch()
			fr.Unpin()
			s.curPage = pn
			s.curPH = ph
			s.curBmp = bmp
			s.slot = 0
		}
		for s.slot < int(s.curPH.RecordCapacity) {
			slot := s.slot
			s.slot++
			if bitmapGet(s.curBmp, slot) {
				return RID{PageNum: s.curPage, Slot: uint32(slot)}, true, nil
			}
		}
		s.curPH = nil
	}
}
