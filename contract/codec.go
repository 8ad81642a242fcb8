package contract

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"

	"crowdfundr/sdk"
)

var errUnexpectedEOF = errors.New("unexpected EOF")

type binWriter struct {
	buf bytes.Buffer
}

// newWriter spins up a fresh writer so we dont leak old bytes between encodes.
func newWriter() *binWriter { return &binWriter{} }

// bytes returns the accumulated buffer, tiny helper but keeps code tidy.
func (w *binWriter) bytes() []byte { return w.buf.Bytes() }

// writeBool squashes bools into a single byte flag for deterministic payloads.
func (w *binWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// writeUint64 writes big endian numbers so tooling can read them without guessing.
func (w *binWriter) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeInt64(v int64) {
	w.writeUint64(uint64(v))
}

// writeVarUint uses varints to keep lengths compact.
func (w *binWriter) writeVarUint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

// writeAmount stores the full 256-bit word, big endian. Nil counts as zero.
func (w *binWriter) writeAmount(v *uint256.Int) {
	if v == nil {
		v = sdk.Zero()
	}
	b := v.Bytes32()
	w.buf.Write(b[:])
}

// writeString prefixes its length then dumps UTF-8 directly.
func (w *binWriter) writeString(s string) {
	w.writeVarUint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *binWriter) writeAddress(a sdk.Address) {
	w.writeString(a.String())
}

type binReader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *binReader {
	return &binReader{data: data}
}

func (r *binReader) readBool() (bool, error) {
	if r.pos >= len(r.data) {
		return false, errUnexpectedEOF
	}
	v := r.data[r.pos]
	r.pos++
	return v == 1, nil
}

func (r *binReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, errUnexpectedEOF
	}
	val := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return val, nil
}

// readInt64 simply casts the unsigned read, matching the writer logic.
func (r *binReader) readInt64() (int64, error) {
	v, err := r.readUint64()
	return int64(v), err
}

func (r *binReader) readVarUint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, errUnexpectedEOF
	}
	r.pos += n
	return v, nil
}

func (r *binReader) readAmount() (*uint256.Int, error) {
	if r.pos+32 > len(r.data) {
		return nil, errUnexpectedEOF
	}
	v := new(uint256.Int).SetBytes32(r.data[r.pos : r.pos+32])
	r.pos += 32
	return v, nil
}

func (r *binReader) readString() (string, error) {
	l, err := r.readVarUint()
	if err != nil {
		return "", err
	}
	if uint64(len(r.data)-r.pos) < l {
		return "", errUnexpectedEOF
	}
	s := string(r.data[r.pos : r.pos+int(l)])
	r.pos += int(l)
	return s, nil
}

func (r *binReader) readAddress() (sdk.Address, error) {
	s, err := r.readString()
	return sdk.Address(s), err
}

// decoder collects the first error so decode funcs read straight down the layout.
type decoder struct {
	r   *binReader
	err error
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.readUint64()
	d.err = err
	return v
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.readInt64()
	d.err = err
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, err := d.r.readBool()
	d.err = err
	return v
}

func (d *decoder) amount() *uint256.Int {
	if d.err != nil {
		return sdk.Zero()
	}
	v, err := d.r.readAmount()
	d.err = err
	if err != nil {
		return sdk.Zero()
	}
	return v
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, err := d.r.readString()
	d.err = err
	return v
}

func (d *decoder) address() sdk.Address {
	return sdk.Address(d.string())
}

// -----------------------------------------------------------------------------
// Campaign Encoding
// -----------------------------------------------------------------------------

func encodeCampaignMeta(m CampaignMeta) string {
	w := newWriter()
	w.writeUint64(m.ID)
	w.writeAddress(m.Owner)
	w.writeAmount(m.Goal)
	w.writeInt64(m.CreatedAt)
	w.writeString(m.Name)
	w.writeString(m.Symbol)
	return string(w.bytes())
}

func decodeCampaignMeta(data string) (CampaignMeta, error) {
	d := decoder{r: newReader([]byte(data))}
	m := CampaignMeta{
		ID:        d.uint64(),
		Owner:     d.address(),
		Goal:      d.amount(),
		CreatedAt: d.int64(),
		Name:      d.string(),
		Symbol:    d.string(),
	}
	return m, d.err
}

func encodeCampaignFinance(f CampaignFinance) string {
	w := newWriter()
	w.writeAmount(f.TotalContributed)
	w.writeAmount(f.TotalWithdrawn)
	w.writeAmount(f.TotalRefunded)
	w.writeBool(f.Cancelled)
	w.writeUint64(f.BadgeCount)
	w.writeUint64(f.RecordCount)
	return string(w.bytes())
}

func decodeCampaignFinance(data string) (CampaignFinance, error) {
	d := decoder{r: newReader([]byte(data))}
	f := CampaignFinance{
		TotalContributed: d.amount(),
		TotalWithdrawn:   d.amount(),
		TotalRefunded:    d.amount(),
		Cancelled:        d.bool(),
		BadgeCount:       d.uint64(),
		RecordCount:      d.uint64(),
	}
	return f, d.err
}

func encodeContribution(c Contribution) string {
	w := newWriter()
	w.writeAmount(c.Cumulative)
	w.writeBool(c.Refunded)
	return string(w.bytes())
}

func decodeContribution(data string) (Contribution, error) {
	d := decoder{r: newReader([]byte(data))}
	c := Contribution{Cumulative: d.amount(), Refunded: d.bool()}
	return c, d.err
}

// -----------------------------------------------------------------------------
// Record Encoding
// -----------------------------------------------------------------------------

func encodeRecord(rec Record) string {
	w := newWriter()
	w.writeUint64(rec.Campaign)
	w.writeUint64(rec.Seq)
	w.writeString(string(rec.Kind))
	w.writeString(rec.TxID)
	w.writeInt64(rec.At)
	w.writeAddress(rec.Handle)
	w.writeAddress(rec.Owner)
	w.writeAddress(rec.Contributor)
	w.writeAddress(rec.From)
	w.writeAddress(rec.To)
	w.writeBool(rec.Amount != nil)
	if rec.Amount != nil {
		w.writeAmount(rec.Amount)
	}
	w.writeUint64(rec.BadgeID)
	return string(w.bytes())
}

func decodeRecord(data string) (Record, error) {
	d := decoder{r: newReader([]byte(data))}
	rec := Record{
		Campaign:    d.uint64(),
		Seq:         d.uint64(),
		Kind:        RecordKind(d.string()),
		TxID:        d.string(),
		At:          d.int64(),
		Handle:      d.address(),
		Owner:       d.address(),
		Contributor: d.address(),
		From:        d.address(),
		To:          d.address(),
	}
	if d.bool() {
		rec.Amount = d.amount()
	}
	rec.BadgeID = d.uint64()
	return rec, d.err
}
