package services

const (
	KeyPlayer      = "player:%d"
	KeyEntry       = "entry:%d"
	KeyEntryIndex  = "entries:index"
	KeyReferral    = "referral:%d"
	KeyHouseWallet = "house:wallet:%s"
	KeyTokenActive = "config:token_active"
	KeyRateLimit   = "ratelimit:%d:%s"

	ReferralFieldCount   = "referral_count"
	ReferralFieldRewards = "shard_rewards"
)
