package contract

import "crowdfundr/sdk"

const (
	// kCampaignMeta stores the immutable CampaignMeta blob.
	kCampaignMeta byte = 0x01
	// kCampaignFinance tracks CampaignFinance (totals, cancelled flag, badge and record counters).
	kCampaignFinance byte = 0x02
	// kContribution holds a contributor's cumulative amount plus the refunded flag.
	kContribution byte = 0x03
	// kBadgeOwner maps badge id to current holder.
	kBadgeOwner byte = 0x04
	// kBadgeBalance counts badges currently held by an address.
	kBadgeBalance byte = 0x05
	// kBadgeClaimed counts badges ever issued to an address, never decreases.
	kBadgeClaimed byte = 0x06
	// kRecord is the append-only record log, indexed by campaign id and sequence.
	kRecord byte = 0x07
)

// packU64LEInline sprinkles a uint64 into dst in little-endian order so our keys stay compact.
func packU64LEInline(x uint64, dst []byte) {
	dst[0] = byte(x)
	dst[1] = byte(x >> 8)
	dst[2] = byte(x >> 16)
	dst[3] = byte(x >> 24)
	dst[4] = byte(x >> 32)
	dst[5] = byte(x >> 40)
	dst[6] = byte(x >> 48)
	dst[7] = byte(x >> 56)
}

// packU64LE appends the encoded number to dst and returns the new slice.
func packU64LE(x uint64, dst []byte) []byte {
	return append(dst,
		byte(x),
		byte(x>>8),
		byte(x>>16),
		byte(x>>24),
		byte(x>>32),
		byte(x>>40),
		byte(x>>48),
		byte(x>>56),
	)
}

func campaignKey(prefix byte, id uint64) string {
	var buf [9]byte
	buf[0] = prefix
	packU64LEInline(id, buf[1:])
	return string(buf[:])
}

func campaignMetaKey(id uint64) string    { return campaignKey(kCampaignMeta, id) }
func campaignFinanceKey(id uint64) string { return campaignKey(kCampaignFinance, id) }

// campaignAddrKey mixes campaign id plus address bytes to avoid nested maps in host storage.
func campaignAddrKey(prefix byte, id uint64, addr sdk.Address) string {
	addrStr := addr.String()
	buf := make([]byte, 0, 1+8+len(addrStr))
	buf = append(buf, prefix)
	buf = packU64LE(id, buf)
	buf = append(buf, addrStr...)
	return string(buf)
}

func contributionKey(id uint64, addr sdk.Address) string {
	return campaignAddrKey(kContribution, id, addr)
}

func badgeBalanceKey(id uint64, addr sdk.Address) string {
	return campaignAddrKey(kBadgeBalance, id, addr)
}

func badgeClaimedKey(id uint64, addr sdk.Address) string {
	return campaignAddrKey(kBadgeClaimed, id, addr)
}

// campaignSeqKey stores sequential entries (badges, records) under the campaign.
func campaignSeqKey(prefix byte, id uint64, n uint64) string {
	var buf [17]byte
	buf[0] = prefix
	packU64LEInline(id, buf[1:])
	packU64LEInline(n, buf[9:])
	return string(buf[:])
}

func badgeOwnerKey(id uint64, badge uint64) string { return campaignSeqKey(kBadgeOwner, id, badge) }
func recordKey(id uint64, seq uint64) string       { return campaignSeqKey(kRecord, id, seq) }
