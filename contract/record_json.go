package contract

import (
	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"

	"crowdfundr/sdk"
)

var (
	_ tinyjson.Marshaler   = Record{}
	_ tinyjson.Unmarshaler = (*Record)(nil)
)

// amountField is the json name of Record.Amount, which depends on the kind.
func (r Record) amountField() string {
	switch r.Kind {
	case RecordCreated:
		return "goal"
	case RecordCancelled:
		return "remainingBalance"
	default:
		return "amount"
	}
}

// MarshalTinyJSON writes the record with wei amounts as decimal strings and empty
// addresses left out.
func (r Record) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"campaign":`)
	w.Uint64(r.Campaign)
	w.RawString(`,"seq":`)
	w.Uint64(r.Seq)
	w.RawString(`,"kind":`)
	w.String(string(r.Kind))
	if r.TxID != "" {
		w.RawString(`,"txId":`)
		w.String(r.TxID)
	}
	w.RawString(`,"at":`)
	w.Int64(r.At)
	writeAddr := func(name string, a sdk.Address) {
		if a == "" {
			return
		}
		w.RawString(`,"` + name + `":`)
		w.String(a.String())
	}
	writeAddr("handle", r.Handle)
	writeAddr("owner", r.Owner)
	writeAddr("contributor", r.Contributor)
	writeAddr("from", r.From)
	writeAddr("to", r.To)
	if r.Amount != nil {
		w.RawString(`,"` + r.amountField() + `":`)
		w.String(r.Amount.Dec())
	}
	if r.BadgeID != 0 {
		w.RawString(`,"badgeId":`)
		w.Uint64(r.BadgeID)
	}
	w.RawByte('}')
}

func (r Record) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	r.MarshalTinyJSON(&w)
	return w.BuildBytes()
}

// UnmarshalTinyJSON accepts the output of MarshalTinyJSON. goal, amount and
// remainingBalance all land in Amount.
func (r *Record) UnmarshalTinyJSON(l *jlexer.Lexer) {
	if l.IsNull() {
		l.Skip()
		return
	}
	l.Delim('{')
	for !l.IsDelim('}') {
		key := l.UnsafeFieldName(false)
		l.WantColon()
		if l.IsNull() {
			l.Skip()
			l.WantComma()
			continue
		}
		switch key {
		case "campaign":
			r.Campaign = l.Uint64()
		case "seq":
			r.Seq = l.Uint64()
		case "kind":
			r.Kind = RecordKind(l.String())
		case "txId":
			r.TxID = l.String()
		case "at":
			r.At = l.Int64()
		case "handle":
			r.Handle = sdk.Address(l.String())
		case "owner":
			r.Owner = sdk.Address(l.String())
		case "contributor":
			r.Contributor = sdk.Address(l.String())
		case "from":
			r.From = sdk.Address(l.String())
		case "to":
			r.To = sdk.Address(l.String())
		case "goal", "amount", "remainingBalance":
			v, err := sdk.ParseWei(l.String())
			if err != nil {
				l.AddError(err)
				return
			}
			r.Amount = v
		case "badgeId":
			r.BadgeID = l.Uint64()
		default:
			l.SkipRecursive()
		}
		l.WantComma()
	}
	l.Delim('}')
	l.Consumed()
}

func (r *Record) UnmarshalJSON(data []byte) error {
	l := jlexer.Lexer{Data: data}
	r.UnmarshalTinyJSON(&l)
	return l.Error()
}
