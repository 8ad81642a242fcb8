package contract

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"crowdfundr/sdk"
)

// RecordKind names the operation a record belongs to.
type RecordKind string

const (
	RecordCreated          RecordKind = "created"
	RecordContributed      RecordKind = "contributed"
	RecordWithdrawn        RecordKind = "withdrawn"
	RecordCancelled        RecordKind = "cancelled"
	RecordRefunded         RecordKind = "refunded"
	RecordBadgeIssued      RecordKind = "badge_issued"
	RecordBadgeTransferred RecordKind = "badge_transferred"
)

// Record is the append-only trace of one successful call. Which fields are set depends on
// Kind:
//
//	created            Handle, Owner, Amount (goal)
//	contributed        Contributor, Amount
//	withdrawn          Amount
//	cancelled          Amount (remaining balance)
//	refunded           Contributor, Amount
//	badge_issued       From (zero address), To, BadgeID
//	badge_transferred  From, To, BadgeID
type Record struct {
	Campaign    uint64
	Seq         uint64
	Kind        RecordKind
	TxID        string
	At          int64 // unix nanos
	Handle      sdk.Address
	Owner       sdk.Address
	Contributor sdk.Address
	From        sdk.Address
	To          sdk.Address
	Amount      *uint256.Int
	BadgeID     uint64
}

// RecordSink receives records after the outermost call that produced them succeeded.
type RecordSink interface {
	Publish(rec Record)
}

// logLine renders the terse one-line form watchers grep for, one code per kind.
func (r Record) logLine() string {
	switch r.Kind {
	case RecordCreated:
		return fmt.Sprintf("cc|id:%d|by:%s|h:%s|g:%s|tx:%s", r.Campaign, r.Owner, r.Handle, sdk.FormatAmount(r.Amount), r.TxID)
	case RecordContributed:
		return fmt.Sprintf("ct|id:%d|by:%s|am:%s|tx:%s", r.Campaign, r.Contributor, sdk.FormatAmount(r.Amount), r.TxID)
	case RecordWithdrawn:
		return fmt.Sprintf("wd|id:%d|am:%s|tx:%s", r.Campaign, sdk.FormatAmount(r.Amount), r.TxID)
	case RecordCancelled:
		return fmt.Sprintf("cx|id:%d|bal:%s|tx:%s", r.Campaign, sdk.FormatAmount(r.Amount), r.TxID)
	case RecordRefunded:
		return fmt.Sprintf("rf|id:%d|to:%s|am:%s|tx:%s", r.Campaign, r.Contributor, sdk.FormatAmount(r.Amount), r.TxID)
	case RecordBadgeIssued:
		return fmt.Sprintf("bi|id:%d|to:%s|b:%d|tx:%s", r.Campaign, r.To, r.BadgeID, r.TxID)
	case RecordBadgeTransferred:
		return fmt.Sprintf("bt|id:%d|from:%s|to:%s|b:%d|tx:%s", r.Campaign, r.From, r.To, r.BadgeID, r.TxID)
	default:
		return fmt.Sprintf("??|id:%d|k:%s|tx:%s", r.Campaign, r.Kind, r.TxID)
	}
}

// emitRecord writes the log line and hands the record to the sink.
func emitRecord(log *zap.Logger, sink RecordSink, rec Record) {
	log.Info(rec.logLine(), zap.Uint64("campaign", rec.Campaign), zap.Uint64("seq", rec.Seq))
	if sink != nil {
		sink.Publish(rec)
	}
}

// ---------------------------------------------------------------------------
// record builders, one per call
// ---------------------------------------------------------------------------

func createdRecord(meta CampaignMeta) Record {
	return Record{Kind: RecordCreated, Handle: meta.Handle(), Owner: meta.Owner, Amount: meta.Goal.Clone()}
}

func contributedRecord(by sdk.Address, amount *uint256.Int) Record {
	return Record{Kind: RecordContributed, Contributor: by, Amount: amount.Clone()}
}

func withdrawnRecord(amount *uint256.Int) Record {
	return Record{Kind: RecordWithdrawn, Amount: amount.Clone()}
}

func cancelledRecord(balance *uint256.Int) Record {
	return Record{Kind: RecordCancelled, Amount: balance.Clone()}
}

func refundedRecord(to sdk.Address, amount *uint256.Int) Record {
	return Record{Kind: RecordRefunded, Contributor: to, Amount: amount.Clone()}
}

func badgeIssuedRecord(to sdk.Address, id uint64) Record {
	return Record{Kind: RecordBadgeIssued, From: sdk.ZeroAddress, To: to, BadgeID: id}
}

func badgeTransferredRecord(from, to sdk.Address, id uint64) Record {
	return Record{Kind: RecordBadgeTransferred, From: from, To: to, BadgeID: id}
}
