package events

// Topics emitted after a confirmed order commits.
const (
	TopicOrderConfirmed = "order.confirmed"
	TopicCouponRedeemed = "coupon.redeemed"
)
